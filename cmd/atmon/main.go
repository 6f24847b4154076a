package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/sunrise.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/sunrise/"
	verbose bool
)

func init() {
	if val := os.Getenv("SUNRISE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&verbose, "verbose", verbose, "Print full reports.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := telemetry.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	q.Sub(telemetry.ReportFilter(), func(topic string, payload []byte) {
		report, err := telemetry.DecodeReport(payload)
		if err != nil {
			log.Printf("%s: bad report: %v", topic, err)
			return
		}
		if verbose {
			log.Printf("%s: %s", topic, report.String())
			return
		}
		log.Printf("%s: %s", topic, report.Summary())
	})
	<-(chan struct{})(nil)
}
