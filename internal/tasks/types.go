package tasks

import "time"

// Task is a to-do item. Ids are positive, unique and monotonically assigned;
// a task never leaves the collection, it only flips not-done -> done.
type Task struct {
	ID        int
	Text      string
	Done      bool
	CreatedAt time.Time
}

// taskRecord is the on-disk shape: a JSON array of these, timestamps as
// RFC 3339 strings.
type taskRecord struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"created_at"`
}

func recordFromTask(t Task) taskRecord {
	return taskRecord{
		ID:        t.ID,
		Text:      t.Text,
		Done:      t.Done,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func taskFromRecord(r taskRecord) (Task, error) {
	createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        r.ID,
		Text:      r.Text,
		Done:      r.Done,
		CreatedAt: createdAt,
	}, nil
}
