package application

// IndicatorState names the visual feedback states the device surfaces.
type IndicatorState string

const (
	IndicateListen  IndicatorState = "listen"
	IndicateWake    IndicatorState = "wake"
	IndicateThink   IndicatorState = "think"
	IndicateSpeak   IndicatorState = "speak"
	IndicateOffline IndicatorState = "offline"
	IndicateOff     IndicatorState = "off"
)

// Indicator drives LED (or other) feedback. Implementations must be cheap
// and non-blocking; they are called from the session's processing path.
type Indicator interface {
	Indicate(state IndicatorState)
}

type NoopIndicator struct{}

func (NoopIndicator) Indicate(_ IndicatorState) {}
