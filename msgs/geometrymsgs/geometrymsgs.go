// Package geometrymsgs contains geometry_msgs message types.
package geometrymsgs

import (
	"github.com/gbdevw/gorosbridge/msgs/stdmsgs"
)

// Wire type names
const (
	Vector3Type          = "geometry_msgs/Vector3"
	QuaternionType       = "geometry_msgs/Quaternion"
	TransformType        = "geometry_msgs/Transform"
	TransformStampedType = "geometry_msgs/TransformStamped"
	TwistType            = "geometry_msgs/Twist"
)

// geometry_msgs/Vector3
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (Vector3) WireType() string {
	return Vector3Type
}

// geometry_msgs/Quaternion
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Quaternion of the null rotation.
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

func (Quaternion) WireType() string {
	return QuaternionType
}

// geometry_msgs/Transform
type Transform struct {
	Translation Vector3    `json:"translation"`
	Rotation    Quaternion `json:"rotation"`
}

func (Transform) WireType() string {
	return TransformType
}

// geometry_msgs/TransformStamped
type TransformStamped struct {
	Header       stdmsgs.Header `json:"header"`
	ChildFrameID string         `json:"child_frame_id"`
	Transform    Transform      `json:"transform"`
}

func (TransformStamped) WireType() string {
	return TransformStampedType
}

// geometry_msgs/Twist
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

func (Twist) WireType() string {
	return TwistType
}
