package entity

import "time"

type Todo struct {
	ID        string
	AccountID string
	CreatedAt time.Time
	Items     []*TodoItem
}

type TodoItem struct {
	ID     string
	TodoID string
	Title  string
	Done   bool
}
