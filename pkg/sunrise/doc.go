// Package sunrise runs the modem bring-up script: it probes and resets an
// ESP8266, joins a WiFi network, opens a UDP socket to an NTP server and
// sends the request marker, showing progress on an HT16K33 display and
// reporting each exchange over MQTT.
package sunrise
