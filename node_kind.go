// node_kind.go - the tagged variant enumerating all node kinds (spec §9
// redesign flag: "dynamic dispatch over node types").

package audiograph

// NodeKind tags which concrete behavior a Node carries.
type NodeKind int

const (
	KindDestination NodeKind = iota
	KindGain
	KindDelay
	KindBiquadFilter
	KindChannelSplitter
	KindChannelMerger
	KindStereoPanner
	KindPannerHRTF
	KindConvolver
	KindSampledSource
	KindOscillator
	KindConstantSource
	KindWaveShaper
	KindAnalyser
	KindDynamicsCompressor
)

func (k NodeKind) String() string {
	switch k {
	case KindDestination:
		return "Destination"
	case KindGain:
		return "Gain"
	case KindDelay:
		return "Delay"
	case KindBiquadFilter:
		return "BiquadFilter"
	case KindChannelSplitter:
		return "ChannelSplitter"
	case KindChannelMerger:
		return "ChannelMerger"
	case KindStereoPanner:
		return "StereoPanner"
	case KindPannerHRTF:
		return "PannerHRTF"
	case KindConvolver:
		return "Convolver"
	case KindSampledSource:
		return "SampledSource"
	case KindOscillator:
		return "Oscillator"
	case KindConstantSource:
		return "ConstantSource"
	case KindWaveShaper:
		return "WaveShaper"
	case KindAnalyser:
		return "Analyser"
	case KindDynamicsCompressor:
		return "DynamicsCompressor"
	default:
		return "Unknown"
	}
}
