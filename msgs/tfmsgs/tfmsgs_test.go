package tfmsgs

import (
	"testing"

	"github.com/gbdevw/gorosbridge/msgs/geometrymsgs"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

/*************************************************************************************************/
/* TEST SUITE                                                                                    */
/*************************************************************************************************/

type TfMsgsUnitTestSuite struct {
	suite.Suite
}

func TestTfMsgsUnitTestSuite(t *testing.T) {
	suite.Run(t, new(TfMsgsUnitTestSuite))
}

/*************************************************************************************************/
/* UNIT TESTS                                                                                    */
/*************************************************************************************************/

// Test decoding a tf tree and looking up a transform by child frame
func (suite *TfMsgsUnitTestSuite) TestDecodeAndFind() {
	raw := `{"transforms":[
		{"header":{"frame_id":"map"},"child_frame_id":"odom",
		 "transform":{"translation":{"x":1,"y":2,"z":0},"rotation":{"x":0,"y":0,"z":0,"w":1}}},
		{"header":{"frame_id":"odom"},"child_frame_id":"base_link",
		 "transform":{"translation":{"x":0.5,"y":0,"z":0},"rotation":{"x":0,"y":0,"z":0.7071,"w":0.7071}}}
	]}`
	msg := TFMessage{}
	require.NoError(suite.T(), json.Unmarshal([]byte(raw), &msg))
	require.Len(suite.T(), msg.Transforms, 2)
	odom, found := msg.Find("odom")
	require.True(suite.T(), found)
	require.Equal(suite.T(), "map", odom.Header.FrameID)
	require.Equal(suite.T(), geometrymsgs.Vector3{X: 1, Y: 2}, odom.Transform.Translation)
	require.Equal(suite.T(), geometrymsgs.IdentityQuaternion(), odom.Transform.Rotation)
	_, found = msg.Find("camera")
	require.False(suite.T(), found)
	require.Equal(suite.T(), "tf/tfMessage", msg.WireType())
}

// Test a transform is encoded with the expected field names
func (suite *TfMsgsUnitTestSuite) TestEncodeTransformStamped() {
	transform := geometrymsgs.TransformStamped{ChildFrameID: "base_link"}
	transform.Header.FrameID = "odom"
	transform.Transform.Rotation = geometrymsgs.IdentityQuaternion()
	raw, err := json.Marshal(TFMessage{Transforms: []geometrymsgs.TransformStamped{transform}})
	require.NoError(suite.T(), err)
	require.JSONEq(suite.T(), `{"transforms":[{
		"header":{"seq":0,"stamp":{"secs":0,"nsecs":0},"frame_id":"odom"},
		"child_frame_id":"base_link",
		"transform":{"translation":{"x":0,"y":0,"z":0},"rotation":{"x":0,"y":0,"z":0,"w":1}}
	}]}`, string(raw))
}
