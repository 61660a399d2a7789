// Package tfmsgs contains the tf message types.
package tfmsgs

import (
	"github.com/gbdevw/gorosbridge/msgs/geometrymsgs"
)

// Wire type name of TFMessage
const TFMessageType = "tf/tfMessage"

// tf/tfMessage
type TFMessage struct {
	Transforms []geometrymsgs.TransformStamped `json:"transforms"`
}

func (TFMessage) WireType() string {
	return TFMessageType
}

// Transform whose child frame is the provided one.
func (msg TFMessage) Find(childFrameID string) (geometrymsgs.TransformStamped, bool) {
	for _, transform := range msg.Transforms {
		if transform.ChildFrameID == childFrameID {
			return transform, true
		}
	}
	return geometrymsgs.TransformStamped{}, false
}
