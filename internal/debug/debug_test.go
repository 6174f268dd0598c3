package debug

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"omr-reader/internal/bubble"
	"omr-reader/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeUploader struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &manager.UploadOutput{}, nil
}

func testMat() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 40, 60, gocv.MatTypeCV8UC3)
}

func TestNopSink(t *testing.T) {
	m := testMat()
	defer m.Close()

	loc, err := NopSink{}.Write(context.Background(), "x.jpg", m)
	require.NoError(t, err)
	assert.Empty(t, loc)
}

func TestDirSink(t *testing.T) {
	m := testMat()
	defer m.Close()
	dir := filepath.Join(t.TempDir(), "nested")

	loc, err := DirSink{Dir: dir}.Write(context.Background(), "debug_thresh.jpg", m)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "debug_thresh.jpg"), loc)
	info, err := os.Stat(loc)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestS3Sink(t *testing.T) {
	m := testMat()
	defer m.Close()
	up := &fakeUploader{}
	sink := NewS3SinkWithUploader(up, "bucket", "runs/abc")

	loc, err := sink.Write(context.Background(), "debug_grid.png", m)
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/runs/abc/debug_grid.png", loc)
	require.Len(t, up.inputs, 1)
	assert.Equal(t, "bucket", aws.ToString(up.inputs[0].Bucket))
	assert.Equal(t, "runs/abc/debug_grid.png", aws.ToString(up.inputs[0].Key))
	assert.Equal(t, "image/png", aws.ToString(up.inputs[0].ContentType))
	assert.Equal(t, []byte("\x89PNG"), up.bodies[0][:4])
}

func TestS3Sink_Errors(t *testing.T) {
	m := testMat()
	defer m.Close()

	_, err := NewS3SinkWithUploader(&fakeUploader{}, "b", "").Write(context.Background(), "debug.txt", m)
	assert.Error(t, err)

	_, err = NewS3SinkWithUploader(&fakeUploader{err: errors.New("denied")}, "b", "").Write(context.Background(), "a.jpg", m)
	assert.ErrorContains(t, err, "denied")
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.DebugConfig{})
	require.NoError(t, err)
	assert.Equal(t, NopSink{}, s)

	s, err = New(context.Background(), config.DebugConfig{Dir: "/tmp/x"})
	require.NoError(t, err)
	assert.Equal(t, DirSink{Dir: "/tmp/x"}, s)

	s, err = New(context.Background(), config.DebugConfig{S3: config.S3Config{Region: "us-east-1", Bucket: "b", AccessKey: "k", SecretKey: "s"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Sink{}, s)
}

func TestOverlay(t *testing.T) {
	p := bubble.DefaultParams().WithLayout(1, 2)
	sheet := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), p.SheetHeight, p.SheetWidth, gocv.MatTypeCV8UC3)
	defer sheet.Close()

	circles := []bubble.Circle{{X: 300, Y: 100, R: 20}, {X: 600, Y: 100, R: 20}}
	grid, err := bubble.BuildGrid(circles, 1, 2, p)
	require.NoError(t, err)

	res := &bubble.LocateResult{
		Strategy:  bubble.StrategyCircleGrid,
		ROI:       p.ROI,
		Questions: 1,
		Choices:   2,
		Scores:    [][]float64{{0.9, 0.1}},
		Circles:   circles,
		Grid:      grid,
		Sheet:     sheet,
	}
	name, vis := Overlay(res)
	assert.Equal(t, ArtifactCircles, name)
	assert.Equal(t, sheet.Cols(), vis.Cols())
	vis.Close()

	res.Strategy = bubble.StrategyGridDensity
	res.Grid = nil
	res.ROI = image.Rect(100, 100, 500, 300)
	name, vis = Overlay(res)
	defer vis.Close()
	assert.Equal(t, ArtifactGrid, name)
	// The ROI border is drawn over a white sheet.
	assert.NotEqual(t, uint8(255), vis.GetUCharAt(100, 300*3+0))
}
