package stdmsgs

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

/*************************************************************************************************/
/* TEST SUITE                                                                                    */
/*************************************************************************************************/

type StdMsgsUnitTestSuite struct {
	suite.Suite
}

func TestStdMsgsUnitTestSuite(t *testing.T) {
	suite.Run(t, new(StdMsgsUnitTestSuite))
}

/*************************************************************************************************/
/* UNIT TESTS                                                                                    */
/*************************************************************************************************/

// Test ROS1 and ROS2 headers are both decoded
func (suite *StdMsgsUnitTestSuite) TestDecodeHeaderStamps() {
	ros1 := Header{}
	err := json.Unmarshal([]byte(`{"seq":7,"stamp":{"secs":12,"nsecs":34},"frame_id":"base_link"}`), &ros1)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), Header{Seq: 7, Stamp: Time{Secs: 12, Nsecs: 34}, FrameID: "base_link"}, ros1)
	ros2 := Header{}
	err = json.Unmarshal([]byte(`{"stamp":{"sec":12,"nanosec":34},"frame_id":"map"}`), &ros2)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), Header{Stamp: Time{Secs: 12, Nsecs: 34}, FrameID: "map"}, ros2)
}

// Test invalid stamps are rejected
func (suite *StdMsgsUnitTestSuite) TestDecodeInvalidStamp() {
	header := Header{}
	err := json.Unmarshal([]byte(`{"stamp":"yesterday"}`), &header)
	require.Error(suite.T(), err)
}

// Test stamps are encoded with ROS1 field names and convert to time.Time
func (suite *StdMsgsUnitTestSuite) TestEncodeStamp() {
	now := time.Unix(1700000000, 500)
	stamp := NewTime(now)
	require.True(suite.T(), now.Equal(stamp.AsTime()))
	raw, err := json.Marshal(stamp)
	require.NoError(suite.T(), err)
	require.JSONEq(suite.T(), `{"secs":1700000000,"nsecs":500}`, string(raw))
}

// Test wire type names
func (suite *StdMsgsUnitTestSuite) TestWireTypes() {
	require.Equal(suite.T(), "std_msgs/Header", Header{}.WireType())
	require.Equal(suite.T(), "std_msgs/String", String{}.WireType())
}
