// Package sensormsgs contains sensor_msgs message types.
package sensormsgs

import (
	"fmt"

	"github.com/gbdevw/gorosbridge/msgs/stdmsgs"
)

// Wire type names
const (
	JoyType       = "sensor_msgs/Joy"
	NavSatFixType = "sensor_msgs/NavSatFix"
)

// sensor_msgs/Joy
type Joy struct {
	Header  stdmsgs.Header `json:"header"`
	Axes    []float32      `json:"axes"`
	Buttons []int32        `json:"buttons"`
}

func (Joy) WireType() string {
	return JoyType
}

// Fix status of a NavSatFix
type FixStatus int8

const (
	// Unable to fix position
	StatusNoFix FixStatus = -1
	// Unaugmented fix
	StatusFix FixStatus = 0
	// Fix with satellite-based augmentation
	StatusSBASFix FixStatus = 1
	// Fix with ground-based augmentation
	StatusGBASFix FixStatus = 2
)

// Bit mask of the satellite services used by a NavSatFix
type SatService uint16

const (
	ServiceGPS     SatService = 1
	ServiceGLONASS SatService = 2
	// Includes BeiDou
	ServiceCompass SatService = 4
	ServiceGalileo SatService = 8
)

// How the position covariance of a NavSatFix is known
type CovarianceType uint8

const (
	CovarianceUnknown       CovarianceType = 0
	CovarianceApproximated  CovarianceType = 1
	CovarianceDiagonalKnown CovarianceType = 2
	CovarianceKnown         CovarianceType = 3
)

// sensor_msgs/NavSatStatus
type NavSatStatus struct {
	Status  FixStatus  `json:"status"`
	Service SatService `json:"service"`
}

// sensor_msgs/NavSatFix
type NavSatFix struct {
	Header    stdmsgs.Header `json:"header"`
	Status    NavSatStatus   `json:"status"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Altitude  float64        `json:"altitude"`
	// Row-major 3x3 matrix in ENU frame (m^2)
	PositionCovariance     []float64      `json:"position_covariance"`
	PositionCovarianceType CovarianceType `json:"position_covariance_type"`
}

func (NavSatFix) WireType() string {
	return NavSatFixType
}

// Whether the receiver has a position fix.
func (fix NavSatFix) HasFix() bool {
	return fix.Status.Status >= StatusFix
}

func (fix NavSatFix) String() string {
	return fmt.Sprintf("Latitude: %v, Longitude: %v, Altitude: %v", fix.Latitude, fix.Longitude, fix.Altitude)
}
