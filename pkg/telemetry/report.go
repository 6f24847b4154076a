package telemetry

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// ExchangeReport describes the outcome of one command exchange with the
// modem, together with ring statistics sampled after the exchange.
type ExchangeReport struct {
	Step             uint32 `protobuf:"varint,1,opt,name=step,proto3" json:"step,omitempty"`
	Name             string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Command          string `protobuf:"bytes,3,opt,name=command,proto3" json:"command,omitempty"`
	Mode             string `protobuf:"bytes,4,opt,name=mode,proto3" json:"mode,omitempty"`
	Reply            []byte `protobuf:"bytes,5,opt,name=reply,proto3" json:"reply,omitempty"`
	Sent             int32  `protobuf:"varint,6,opt,name=sent,proto3" json:"sent,omitempty"`
	Received         int32  `protobuf:"varint,7,opt,name=received,proto3" json:"received,omitempty"`
	Error            string `protobuf:"bytes,8,opt,name=error,proto3" json:"error,omitempty"`
	DurationUs       int64  `protobuf:"varint,9,opt,name=duration_us,json=durationUs,proto3" json:"duration_us,omitempty"`
	InboundDrops     uint64 `protobuf:"varint,10,opt,name=inbound_drops,json=inboundDrops,proto3" json:"inbound_drops,omitempty"`
	OutboundDrops    uint64 `protobuf:"varint,11,opt,name=outbound_drops,json=outboundDrops,proto3" json:"outbound_drops,omitempty"`
	InboundHighWater uint32 `protobuf:"varint,12,opt,name=inbound_high_water,json=inboundHighWater,proto3" json:"inbound_high_water,omitempty"`
	TimestampMs      int64  `protobuf:"varint,13,opt,name=timestamp_ms,json=timestampMs,proto3" json:"timestamp_ms,omitempty"`
}

// Reset implements proto.Message.
func (m *ExchangeReport) Reset() { *m = ExchangeReport{} }

// String implements proto.Message.
func (m *ExchangeReport) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*ExchangeReport) ProtoMessage() {}

// Failed tells whether the exchange reported an error.
func (m *ExchangeReport) Failed() bool {
	return m.Error != ""
}

// Summary formats the report as a single log line.
func (m *ExchangeReport) Summary() string {
	status := "ok"
	if m.Failed() {
		status = m.Error
	}
	return fmt.Sprintf("step %d %s: %q sent=%d received=%d drops=%d/%d %s",
		m.Step, m.Name, m.Reply, m.Sent, m.Received,
		m.InboundDrops, m.OutboundDrops, status)
}

// Encode serializes the report.
func (m *ExchangeReport) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeReport parses a serialized report.
func DecodeReport(payload []byte) (*ExchangeReport, error) {
	var m ExchangeReport
	if err := proto.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &m, nil
}
