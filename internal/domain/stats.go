package domain

import (
	"context"
	"fmt"
)

type StatKind string

const (
	StatVisitors  StatKind = "visitors"
	StatDownloads StatKind = "downloads"
)

func ParseStatKind(s string) (StatKind, error) {
	switch StatKind(s) {
	case StatVisitors, StatDownloads:
		return StatKind(s), nil
	}
	return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown stat %q", s)}
}

type Stats struct {
	Visitors     int64 `json:"visitors"`
	Downloads    int64 `json:"downloads"`
	Contributors int   `json:"contributors"`
}

type StatsRepository interface {
	// Increment adds one to the counter and returns its new value.
	Increment(ctx context.Context, kind StatKind) (int64, error)
	Counters(ctx context.Context) (map[StatKind]int64, error)
}
