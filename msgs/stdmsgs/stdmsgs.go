// Package stdmsgs contains the std_msgs message types shared by other message packages.
package stdmsgs

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Wire type names
const (
	HeaderType = "std_msgs/Header"
	StringType = "std_msgs/String"
)

// Timestamp of a message. ROS1 stamps (secs, nsecs) and ROS2 stamps (sec, nanosec) are both
// accepted when decoding. Stamps are encoded with ROS1 field names.
type Time struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// Convert a time.Time to a stamp.
func NewTime(t time.Time) Time {
	return Time{Secs: t.Unix(), Nsecs: int64(t.Nanosecond())}
}

// Stamp as a time.Time.
func (t Time) AsTime() time.Time {
	return time.Unix(t.Secs, t.Nsecs)
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var raw struct {
		Secs    *int64 `json:"secs"`
		Nsecs   *int64 `json:"nsecs"`
		Sec     *int64 `json:"sec"`
		Nanosec *int64 `json:"nanosec"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid stamp: %w", err)
	}
	*t = Time{}
	switch {
	case raw.Secs != nil:
		t.Secs = *raw.Secs
	case raw.Sec != nil:
		t.Secs = *raw.Sec
	}
	switch {
	case raw.Nsecs != nil:
		t.Nsecs = *raw.Nsecs
	case raw.Nanosec != nil:
		t.Nsecs = *raw.Nanosec
	}
	return nil
}

// std_msgs/Header
type Header struct {
	// Sequence number. Absent from ROS2 headers.
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

func (Header) WireType() string {
	return HeaderType
}

// std_msgs/String
type String struct {
	Data string `json:"data"`
}

func (String) WireType() string {
	return StringType
}
