// Package telemetry publishes command exchange reports to an MQTT broker.
//
// Each report is a protobuf encoded ExchangeReport sent to
// <prefix><device-id>/report, where prefix is the path of the broker URL
// and device-id defaults to the machine ID.
package telemetry
