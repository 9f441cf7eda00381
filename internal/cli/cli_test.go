package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"docubot-be/internal/dto"
	"docubot-be/internal/service"
	"docubot-be/pkg/rag/ingest"
	"docubot-be/pkg/rag/prompt"
	"docubot-be/pkg/rag/response"
	"docubot-be/pkg/rag/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngestService struct {
	root, pattern string
	report        *service.IngestReport
	err           error
}

func (f *fakeIngestService) IngestCorpus(_ context.Context, root, pattern string) (*service.IngestReport, error) {
	f.root, f.pattern = root, pattern
	return f.report, f.err
}

func TestIngestCommandUsesFlags(t *testing.T) {
	svc := &fakeIngestService{report: &service.IngestReport{Root: "/corpus", Documents: 2, Passages: 7}}
	cmd := NewIngestCommand("./docs", "**/*.txt", func() (service.IIngestService, error) { return svc, nil })
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--docs", "/corpus", "--glob", "*.txt"})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, "/corpus", svc.root)
	assert.Equal(t, "*.txt", svc.pattern)
	assert.Contains(t, buf.String(), "documents: 2")
	assert.Contains(t, buf.String(), "passages:  7")
}

func TestIngestCommandDefaults(t *testing.T) {
	svc := &fakeIngestService{report: &service.IngestReport{}}
	cmd := NewIngestCommand("./docs", "**/*.txt", func() (service.IIngestService, error) { return svc, nil })
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, "./docs", svc.root)
	assert.Equal(t, "**/*.txt", svc.pattern)
}

func TestIngestCommandReportsFailures(t *testing.T) {
	svc := &fakeIngestService{
		report: &service.IngestReport{
			Documents: 1,
			Failures:  []dto.IngestFailure{{SourcePath: "b.txt", Error: "embedding service unavailable"}},
		},
		err: fmt.Errorf("%w: 1 of 2 documents failed", ingest.ErrIngestionFailure),
	}
	cmd := NewIngestCommand("./docs", "**/*.txt", func() (service.IIngestService, error) { return svc, nil })
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.ErrorIs(t, err, ingest.ErrIngestionFailure)
	assert.Contains(t, buf.String(), "failed  b.txt")
}

type fakeAnswerer struct {
	prepareErr error
	grounded   bool
	fragments  []string
	streamErr  error
	question   string
}

func (f *fakeAnswerer) Prepare(_ context.Context, q string) (*service.PreparedAnswer, error) {
	f.question = q
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	p := prompt.Prompt{Grounded: f.grounded}
	if f.grounded {
		p.Sources = []string{"sky.txt"}
	}
	return &service.PreparedAnswer{Question: q, Prompt: p}, nil
}

func (f *fakeAnswerer) Stream(_ context.Context, _ *service.PreparedAnswer, sink response.Sink) *response.Outcome {
	out := &response.Outcome{State: response.StateCompleted}
	for _, frag := range f.fragments {
		_ = sink.WriteFragment(frag)
		out.Text += frag
	}
	if f.streamErr != nil {
		out.State = response.StateFailed
		out.Err = fmt.Errorf("%w: %w", response.ErrGenerationFailure, f.streamErr)
	}
	return out
}

func runAsk(t *testing.T, svc *fakeAnswerer, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewAskCommand(func() (service.IAnswerService, error) { return svc, nil })
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAskCommandStreamsAnswer(t *testing.T) {
	svc := &fakeAnswerer{grounded: true, fragments: []string{"The", " sky", " is", " blue."}}

	out, _, err := runAsk(t, svc, "What", "color", "is", "the", "sky?")

	require.NoError(t, err)
	assert.Equal(t, "What color is the sky?", svc.question)
	assert.Contains(t, out, "Sources: sky.txt")
	assert.Contains(t, out, "The sky is blue.\n")
}

func TestAskCommandUngrounded(t *testing.T) {
	svc := &fakeAnswerer{fragments: []string{prompt.FallbackAnswer}}

	out, errOut, err := runAsk(t, svc, "What is the capital of France?")

	require.NoError(t, err)
	assert.NotContains(t, out, "Sources:")
	assert.Contains(t, out, prompt.FallbackAnswer)
	assert.Contains(t, errOut, "no matching documentation")
}

func TestAskCommandMidStreamFailure(t *testing.T) {
	svc := &fakeAnswerer{grounded: true, fragments: []string{"The", " sky", " is"}, streamErr: errors.New("reset")}

	out, errOut, err := runAsk(t, svc, "What color is the sky?")

	assert.ErrorIs(t, err, response.ErrGenerationFailure)
	assert.Contains(t, out, "The sky is")
	assert.Contains(t, errOut, "cut off")
}

func TestAskCommandRetrievalUnavailable(t *testing.T) {
	svc := &fakeAnswerer{prepareErr: fmt.Errorf("%w: refused", search.ErrRetrievalUnavailable)}

	_, _, err := runAsk(t, svc, "anything")

	assert.ErrorIs(t, err, search.ErrRetrievalUnavailable)
	assert.Contains(t, err.Error(), "cannot search documentation right now")
}

func TestAskCommandRejectsBlankQuestion(t *testing.T) {
	_, _, err := runAsk(t, &fakeAnswerer{}, "   ")

	assert.ErrorIs(t, err, errEmptyQuestion)
}
