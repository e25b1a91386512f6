package features

// Column names as they appear in the flow dataset.
const (
	FlowDuration         = "Flow Duration"
	TotalFwdPackets      = "Total Fwd Packets"
	TotalBackwardPackets = "Total Backward Packets"
	FwdPacketLengthMean  = "Fwd Packet Length Mean"
	BwdPacketLengthMean  = "Bwd Packet Length Mean"
	FlowBytesPerSecond   = "Flow Bytes/s"
	FlowPacketsPerSecond = "Flow Packets/s"
	SYNFlagCount         = "SYN Flag Count"
	ACKFlagCount         = "ACK Flag Count"
	InitWinBytesForward  = "Init_Win_bytes_forward"
	InitWinBytesBackward = "Init_Win_bytes_backward"
	ActiveMean           = "Active Mean"
	IdleMean             = "Idle Mean"

	// LabelColumn holds the ground truth. It is never part of the model input.
	LabelColumn = "Label"
)

// Count is the length of every model input vector.
const Count = 13

// Columns lists the model input features in the order the model expects them.
var Columns = [Count]string{
	FlowDuration,
	TotalFwdPackets,
	TotalBackwardPackets,
	FwdPacketLengthMean,
	BwdPacketLengthMean,
	FlowBytesPerSecond,
	FlowPacketsPerSecond,
	SYNFlagCount,
	ACKFlagCount,
	InitWinBytesForward,
	InitWinBytesBackward,
	ActiveMean,
	IdleMean,
}

// Record is a loosely shaped flow row keyed by column name.
type Record map[string]float64

// Without returns a copy of r with key removed.
func (r Record) Without(key string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if k == key {
			continue
		}
		out[k] = v
	}
	return out
}

// Flow is the typed model input.
type Flow struct {
	FlowDuration         float64 `json:"flow_duration"`
	TotalFwdPackets      float64 `json:"total_fwd_packets"`
	TotalBackwardPackets float64 `json:"total_backward_packets"`
	FwdPacketLengthMean  float64 `json:"fwd_packet_length_mean"`
	BwdPacketLengthMean  float64 `json:"bwd_packet_length_mean"`
	FlowBytesPerSecond   float64 `json:"flow_bytes_per_second"`
	FlowPacketsPerSecond float64 `json:"flow_packets_per_second"`
	SYNFlagCount         float64 `json:"syn_flag_count"`
	ACKFlagCount         float64 `json:"ack_flag_count"`
	InitWinBytesForward  float64 `json:"init_win_bytes_forward"`
	InitWinBytesBackward float64 `json:"init_win_bytes_backward"`
	ActiveMean           float64 `json:"active_mean"`
	IdleMean             float64 `json:"idle_mean"`
}

// fields returns pointers to the struct fields, ordered like Columns.
func (f *Flow) fields() [Count]*float64 {
	return [Count]*float64{
		&f.FlowDuration,
		&f.TotalFwdPackets,
		&f.TotalBackwardPackets,
		&f.FwdPacketLengthMean,
		&f.BwdPacketLengthMean,
		&f.FlowBytesPerSecond,
		&f.FlowPacketsPerSecond,
		&f.SYNFlagCount,
		&f.ACKFlagCount,
		&f.InitWinBytesForward,
		&f.InitWinBytesBackward,
		&f.ActiveMean,
		&f.IdleMean,
	}
}

// FromMap builds a Flow from a record. Absent features are zero and keys
// outside Columns, such as LabelColumn, are ignored.
func FromMap(r Record) Flow {
	var f Flow
	for i, p := range f.fields() {
		*p = r[Columns[i]]
	}
	return f
}

// Vector returns the features in model order.
func (f Flow) Vector() []float64 {
	out := make([]float64, Count)
	for i, p := range f.fields() {
		out[i] = *p
	}
	return out
}

// IsFeature reports whether name is one of the model input columns.
func IsFeature(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}
