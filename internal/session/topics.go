package session

import "fmt"

// The device exposes exactly two topics, both derived from its serial
// number, and authenticates every channel with a fixed username plus
// the per-device access code.
const (
	// deviceUsername is the fixed MQTT (and FTPS) username.
	deviceUsername = "bblp"

	reportTopicFormat  = "device/%s/report"
	requestTopicFormat = "device/%s/request"
)

// Topics builds the two topic names for one device.
//
//	topics := session.Topics{Serial: "01S00C123400001"}
//	topics.Report()  // "device/01S00C123400001/report"
//	topics.Request() // "device/01S00C123400001/request"
type Topics struct {
	Serial string
}

// Report returns the device → client telemetry topic.
func (t Topics) Report() string {
	return fmt.Sprintf(reportTopicFormat, t.Serial)
}

// Request returns the client → device command topic.
func (t Topics) Request() string {
	return fmt.Sprintf(requestTopicFormat, t.Serial)
}
