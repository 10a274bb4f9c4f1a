package flow

import "time"

const (
	NoDocumentMessage    = "To run a query, open the playground or an FQL document."
	TooManyRolesMessage  = "More than 1000 roles were found, so this list is incomplete."
	StaticTypeLinePrefix = "static type: "
)

var timeNow = time.Now

func SetTimeNowFn(f func() time.Time) {
	timeNow = f
}

func RestoreTimeNow() {
	timeNow = time.Now
}
