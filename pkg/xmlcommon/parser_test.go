package xmlcommon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	starts []string
	texts  []string
	ends   []string
}

func (h *recordingHandler) OnStart(name string, attrs map[string]string, depth int) error {
	h.starts = append(h.starts, name)
	return nil
}

func (h *recordingHandler) OnText(text string, depth int) error {
	if text != "" {
		h.texts = append(h.texts, text)
	}
	return nil
}

func (h *recordingHandler) OnEnd(name string, depth int) error {
	h.ends = append(h.ends, name)
	return nil
}

func TestParserRunBasicDocument(t *testing.T) {
	data := []byte(`<root><a>hello</a><b/></root>`)
	h := &recordingHandler{}
	p := NewParser(data)
	require.NoError(t, p.Run(h))

	require.Equal(t, []string{"root", "a", "b"}, h.starts)
	require.Equal(t, []string{"hello"}, h.texts)
	require.Equal(t, []string{"a", "b", "root"}, h.ends)
}

type depthHandler struct {
	depths map[string]int
}

func (h *depthHandler) OnStart(name string, attrs map[string]string, depth int) error {
	if h.depths == nil {
		h.depths = map[string]int{}
	}
	h.depths[name] = depth
	return nil
}
func (h *depthHandler) OnText(text string, depth int) error { return nil }
func (h *depthHandler) OnEnd(name string, depth int) error  { return nil }

func TestParserTracksDepth(t *testing.T) {
	data := []byte(`<root><outer><inner/></outer></root>`)
	h := &depthHandler{}
	p := NewParser(data)
	require.NoError(t, p.Run(h))

	require.Equal(t, 0, h.depths["root"])
	require.Equal(t, 1, h.depths["outer"])
	require.Equal(t, 2, h.depths["inner"])
}

func TestParserParentStack(t *testing.T) {
	var captured []StackEntry
	data := []byte(`<root><a><b/></a></root>`)
	p := NewParser(data)
	handler := &stackCapturingHandler{p: p, onName: "b", captured: &captured}
	require.NoError(t, p.Run(handler))

	require.Len(t, captured, 3)
	require.Equal(t, "root", captured[0].Name)
	require.Equal(t, "a", captured[1].Name)
	require.Equal(t, "b", captured[2].Name)
}

type stackCapturingHandler struct {
	p        *Parser
	onName   string
	captured *[]StackEntry
}

func (h *stackCapturingHandler) OnStart(name string, attrs map[string]string, depth int) error {
	if name == h.onName {
		*h.captured = h.p.ParentStack()
	}
	return nil
}
func (h *stackCapturingHandler) OnText(text string, depth int) error { return nil }
func (h *stackCapturingHandler) OnEnd(name string, depth int) error  { return nil }
