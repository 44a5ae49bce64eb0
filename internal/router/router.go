package router

import (
	"log"

	"github.com/linguist-ai/linguist-bridge/internal/metrics"
	"github.com/linguist-ai/linguist-bridge/internal/registry"
)

// Frame is one tagged ingress audio packet from the capture device. Frames
// are ephemeral: consumed immediately by Route, never persisted.
type Frame struct {
	SourceID           string
	PCM                []byte
	SampleRate         int
	TimestampMonotonic int64
}

// DispatchFunc forwards a routed frame into the speaker's capture pipeline
// together with the resolved translation target.
type DispatchFunc func(speaker registry.Participant, targetLanguage string, pcm []byte)

// Router receives tagged ingress frames, suppresses self-feedback and
// resolves the translation target before handing audio to the pipeline.
type Router struct {
	reg      *registry.Registry
	fallback string
	dispatch DispatchFunc
	metrics  *metrics.BridgeMetrics
}

// New creates a router over reg. fallback is the target language used when
// the speaker is alone in the call.
func New(reg *registry.Registry, fallback string, m *metrics.BridgeMetrics, dispatch DispatchFunc) *Router {
	return &Router{
		reg:      reg,
		fallback: fallback,
		dispatch: dispatch,
		metrics:  m,
	}
}

// Route dispatches one ingress frame. Frames tagged with the reserved bot
// identity are discarded unconditionally: that is our own synthesized
// playback coming back at us, and feeding it to the pipeline would loop.
// Malformed or unattributable frames are dropped and counted; Route never
// panics or returns an error to the audio path.
func (r *Router) Route(f Frame) {
	if f.SourceID == r.reg.BotID() {
		r.metrics.AddDrop(metrics.DropFeedback)
		return
	}

	if len(f.PCM) == 0 {
		r.metrics.AddDrop(metrics.DropMalformed)
		return
	}

	speaker, ok := r.reg.Get(f.SourceID)
	if !ok {
		r.metrics.AddDrop(metrics.DropUnregistered)
		return
	}

	target := r.ResolveTarget(f.SourceID)

	r.metrics.AddAudioBytes(len(f.PCM))
	r.dispatch(speaker, target, f.PCM)
}

// ResolveTarget picks the translation target for a speaker: the first other
// participant by registration order, or the configured fallback when the
// speaker is alone. With more than two participants this is a single
// arbitrary target; fan-out to every other language is a policy decision
// deliberately left out of this version.
func (r *Router) ResolveTarget(sourceID string) string {
	candidates := r.reg.Others(sourceID, r.reg.BotID())
	if len(candidates) == 0 {
		return r.fallback
	}
	return candidates[0].Language
}

// LogDropTotals writes the drop counters. Called at session teardown.
func (r *Router) LogDropTotals() {
	log.Printf("Router: drops feedback=%d unregistered=%d malformed=%d",
		r.metrics.Drops(metrics.DropFeedback),
		r.metrics.Drops(metrics.DropUnregistered),
		r.metrics.Drops(metrics.DropMalformed))
}
