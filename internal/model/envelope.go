package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/speedwagon-io/gauge/internal/gauge"
)

type Envelope struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	Timestamp   time.Time `json:"timestamp"`
	TargetID    string    `json:"target_id"`
	TargetName  string    `json:"target_name"`
	TargetGroup string    `json:"target_group"`
	Readings    []Reading `json:"readings"`
}

func NewEnvelope(sourceID, sourceName, targetID, targetName, targetGroup string, readings []Reading) *Envelope {
	return &Envelope{
		ID:          uuid.New().String(),
		SourceID:    sourceID,
		SourceName:  sourceName,
		Timestamp:   time.Now().UTC(),
		TargetID:    targetID,
		TargetName:  targetName,
		TargetGroup: targetGroup,
		Readings:    readings,
	}
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Worst returns the highest level among classified readings, or LevelNone.
// Non-finite readings count; bad readings carry no level and are skipped.
func (e *Envelope) Worst() gauge.Level {
	worst := gauge.LevelNone
	for _, r := range e.Readings {
		if r.Quality != QualityBad && r.Level > worst {
			worst = r.Level
		}
	}
	return worst
}
