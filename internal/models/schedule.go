package models

// ScheduleGame is one entry of the upstream daily schedule, reduced to the
// fields ingestion relies on.
type ScheduleGame struct {
	ID       int64  `json:"game_id"`
	DateTime string `json:"game_datetime"`
	Summary  string `json:"summary"`
	Status   string `json:"status"`
}
