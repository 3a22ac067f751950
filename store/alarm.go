package store

// Alarm is the persisted form of a daily recurring reminder.
type Alarm struct {
	ID        string
	Title     string
	Hour      int
	Minute    int
	Enabled   bool
	CreatedTs int64
	UpdatedTs int64
}

type FindAlarm struct {
	ID      *string
	Enabled *bool
}

type UpdateAlarm struct {
	ID        string
	Title     *string
	Enabled   *bool
	UpdatedTs *int64
}

type DeleteAlarm struct {
	ID string
}
