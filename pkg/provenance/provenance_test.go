package provenance

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mrisubject/pkg/image"
	"mrisubject/pkg/subject"
	"mrisubject/pkg/transform"
)

func newSubject(t *testing.T) *subject.Subject {
	t.Helper()
	data, err := image.NewTensor(1, [3]int{3, 4, 5})
	require.NoError(t, err)
	for i := range data.Values {
		data.Values[i] = float64(i % 7)
	}
	img, err := image.New(image.Intensity, data, image.AffineFromSpacing([3]float64{1, 1, 1}, [3]float64{}))
	require.NoError(t, err)
	s, err := subject.New(subject.Item{Name: "t1", Value: img})
	require.NoError(t, err)
	return s
}

func process(t *testing.T, s *subject.Subject) *subject.Subject {
	t.Helper()
	flip, err := transform.NewFlip(1)
	require.NoError(t, err)
	pad, err := transform.NewPad(-2, 1, 0, 2)
	require.NoError(t, err)
	out, err := subject.NewCompose(flip, pad, &transform.Mask{OutsideValue: 3}).Apply(s)
	require.NoError(t, err)
	return out
}

func names(records []subject.AppliedTransform) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestWriteAndReadFile(t *testing.T) {
	processed := process(t, newSubject(t))
	rec := New("sub-01", processed)

	path := filepath.Join(t.TempDir(), "out", "history.yaml")
	require.NoError(t, WriteFile(path, rec))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, Version, got.Version)
	require.Equal(t, "sub-01", got.Subject)
	require.True(t, rec.Created.Equal(got.Created))
	require.Equal(t, []string{transform.FlipName, transform.PadName, transform.MaskName}, names(got.Transforms))
}

func TestRebuildFromFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, New("", process(t, newSubject(t)))))

	rec, err := Decode(&buf)
	require.NoError(t, err)
	transforms, err := rec.Rebuild(subject.WithRegistry(transform.NewRegistry()))
	require.NoError(t, err)
	require.Len(t, transforms, 3)
	require.Equal(t, []int{1}, transforms[0].(*transform.Flip).Axes)
	require.Equal(t, []int{1, 1, 0, 0, 2, 2}, transforms[1].(*transform.Pad).Padding)
	require.Equal(t, -2.0, transforms[1].(*transform.Pad).Fill)
	require.Equal(t, 3.0, transforms[2].(*transform.Mask).OutsideValue)

	geometric, err := rec.Rebuild(subject.IgnoreIntensity())
	require.NoError(t, err)
	require.Len(t, geometric, 2)
}

func TestReplayReproducesSubject(t *testing.T) {
	original := newSubject(t)
	processed := process(t, original)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, New("sub-01", processed)))
	rec, err := Decode(&buf)
	require.NoError(t, err)

	replayed, err := rec.Replay(original)
	require.NoError(t, err)
	require.Equal(t, names(processed.History()), names(replayed.History()))

	want, err := processed.Image("t1")
	require.NoError(t, err)
	got, err := replayed.Image("t1")
	require.NoError(t, err)
	wantData, err := want.Data()
	require.NoError(t, err)
	gotData, err := got.Data()
	require.NoError(t, err)
	require.Equal(t, wantData.Values, gotData.Values)
	require.Equal(t, want.Origin(), got.Origin())

	// replaying the record again and inverting leads back to the input grid
	restored, err := replayed.ApplyInverseTransform(subject.WithWarnings(false))
	require.NoError(t, err)
	back, err := restored.Image("t1")
	require.NoError(t, err)
	require.Equal(t, [3]int{3, 4, 5}, back.SpatialShape())
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	_, err := Decode(strings.NewReader("version: 99\ntransforms: []\n"))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeUnknownTransform(t *testing.T) {
	rec, err := Decode(strings.NewReader("version: 1\ntransforms:\n  - name: Elastic\n"))
	require.NoError(t, err)
	_, err = rec.Rebuild()
	require.ErrorIs(t, err, subject.ErrUnknownTransform)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
