package types

import "time"

// Homework is an ordered set of problems assigned together.
type Homework struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	ProblemIDs []int     `json:"problem_ids" db:"problem_ids"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// StudentProgress reports a student's best grade per homework problem.
// Problems the student never attempted are absent from Scores.
type StudentProgress struct {
	StudentID    int         `json:"student_id"`
	StudentName  string      `json:"student_name"`
	StudentEmail string      `json:"student_email"`
	Scores       map[int]int `json:"scores"`
}
