package service

import (
	"fmt"
	"sort"

	"ragchat/client/internal/model"
)

// ScoreBand buckets a similarity score for display.
type ScoreBand string

const (
	BandHigh   ScoreBand = "high"
	BandMedium ScoreBand = "medium"
	BandLow    ScoreBand = "low"
)

// BandFor returns the display band of a cosine score.
func BandFor(score float64) ScoreBand {
	switch {
	case score >= 0.8:
		return BandHigh
	case score >= 0.6:
		return BandMedium
	default:
		return BandLow
	}
}

// DecoratedMessage is a message with its retrieval metadata bound for display.
type DecoratedMessage struct {
	model.Message
	// ChunkCount is the inline summary: how many chunks backed the answer.
	ChunkCount int
}

// HasEvidence reports whether the message carries retrieval metadata at all.
func (d DecoratedMessage) HasEvidence() bool {
	return d.Role == model.RoleAssistant && d.RagDetails != nil
}

// Summary is the short inline label, e.g. "RAG: 3 chunks".
func (d DecoratedMessage) Summary() string {
	if !d.HasEvidence() {
		return ""
	}
	return fmt.Sprintf("RAG: %d chunks", d.ChunkCount)
}

// Detail projects the bound metadata into the on-demand detail view.
func (d DecoratedMessage) Detail() (EvidenceDetail, bool) {
	if !d.HasEvidence() {
		return EvidenceDetail{}, false
	}
	return DetailOf(d.RagDetails), true
}

// Bind attaches ragDetails to msg. The details are shared, never modified.
func Bind(msg model.Message, ragDetails *model.RagDetail) DecoratedMessage {
	msg.RagDetails = ragDetails
	return Decorate(msg)
}

// Decorate derives the display summary of a message that may already carry
// retrieval metadata.
func Decorate(msg model.Message) DecoratedMessage {
	d := DecoratedMessage{Message: msg}
	if msg.RagDetails != nil {
		d.ChunkCount = len(msg.RagDetails.ChunksUsed)
	}
	return d
}

// DecorateAll decorates a message list in order.
func DecorateAll(msgs []model.Message) []DecoratedMessage {
	out := make([]DecoratedMessage, len(msgs))
	for i, msg := range msgs {
		out[i] = Decorate(msg)
	}
	return out
}

// RankedEvidence is one row of the evidence table.
type RankedEvidence struct {
	Rank int
	model.Evidence
	Band ScoreBand
}

// EvidenceDetail is the full detail view of one answer's retrieval.
type EvidenceDetail struct {
	Query string
	// Evidence is ordered by descending score; equal scores keep backend order.
	Evidence   []RankedEvidence
	Context    string
	HasContext bool
}

// NoMatches reports the "no matching chunks" state.
func (d EvidenceDetail) NoMatches() bool {
	return len(d.Evidence) == 0
}

// Status is the one-line retrieval status shown above the table.
func (d EvidenceDetail) Status() string {
	if d.NoMatches() {
		return "no matching chunks"
	}
	return fmt.Sprintf("found %d relevant chunks", len(d.Evidence))
}

// DetailOf builds the detail view of rd without modifying it.
func DetailOf(rd *model.RagDetail) EvidenceDetail {
	if rd == nil {
		return EvidenceDetail{}
	}
	detail := EvidenceDetail{Query: rd.Query}
	if rd.ContextUsed != nil && *rd.ContextUsed != "" {
		detail.Context = *rd.ContextUsed
		detail.HasContext = true
	}

	ranked := make([]RankedEvidence, len(rd.ChunksUsed))
	for i, ev := range rd.ChunksUsed {
		ranked[i] = RankedEvidence{Evidence: ev, Band: BandFor(ev.Score)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	detail.Evidence = ranked
	return detail
}
