package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreply/internal/answer"
	"civreply/internal/cerr"
	"civreply/internal/index"
	"civreply/internal/ingest"
	"civreply/internal/models"
	"civreply/internal/postprocess"
	"civreply/internal/quota"
	"civreply/internal/storage"
)

// keywordEmbedder embeds text as keyword-presence features, so related texts
// land near each other and unrelated questions land far away.
type keywordEmbedder struct{}

var keywords = []string{"recycling", "tuesday", "dog", "reserve"}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	for i, kw := range keywords {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	vec[len(keywords)] = 0.1 // keeps vectors nonzero
	return vec, nil
}

type scriptedCompleter struct {
	calls int
	fail  bool
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string, _ models.ModelTier) (string, error) {
	s.calls++
	if s.fail {
		return "", errors.New("model service down")
	}
	if strings.Contains(prompt, "Translate the following answer") {
		return "đã dịch: " + prompt[strings.LastIndex(prompt, "\n")+1:], nil
	}
	if strings.Contains(prompt, "second Tuesday") {
		return "Recycling is collected every second Tuesday, according to bins.txt.", nil
	}
	return "The documents do not cover this.", nil
}

func (s *scriptedCompleter) ModelFor(tier models.ModelTier) string { return "scripted-" + string(tier) }

type fixture struct {
	service   *Service
	builder   *index.Builder
	governor  *quota.Governor
	completer *scriptedCompleter
	docsRoot  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	store, err := storage.NewIndexStore(filepath.Join(root, "index"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	governor, err := quota.Open(filepath.Join(root, "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = governor.Close() })

	completer := &scriptedCompleter{}
	embedder := keywordEmbedder{}

	docsRoot := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docsRoot, 0o755))

	return &fixture{
		service: NewService(
			NewRetriever(store, embedder, 0.75),
			answer.NewGenerator(completer),
			postprocess.NewProcessor(postprocess.NewLLMTranslator(completer)),
			governor,
			3,
		),
		builder:   index.NewBuilder(store, ingest.New(1000, 200), embedder),
		governor:  governor,
		completer: completer,
		docsRoot:  docsRoot,
	}
}

func (f *fixture) indexTenant(t *testing.T, tenant, docName, content string) {
	t.Helper()
	dir := filepath.Join(f.docsRoot, tenant)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, docName), []byte(content), 0o644))
	_, err := f.builder.Rebuild(context.Background(), tenant, dir)
	require.NoError(t, err)
}

func TestAskGroundedAnswerWithCitation(t *testing.T) {
	f := newFixture(t)
	f.indexTenant(t, "wyndham", "bins.txt", "Recycling is collected every second Tuesday.")

	resp, err := f.service.Ask(context.Background(), models.AskRequest{
		Tenant:   "wyndham",
		Question: "When is recycling collected?",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, "second Tuesday")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "bins.txt", resp.Sources[0].Document)
	assert.Equal(t, models.PlanBasic, resp.Plan)
}

func TestAskIrrelevantQuestionGetsNoInformationAnswer(t *testing.T) {
	f := newFixture(t)
	f.indexTenant(t, "wyndham", "bins.txt", "Recycling is collected every second Tuesday.")

	callsBefore := f.completer.calls
	resp, err := f.service.Ask(context.Background(), models.AskRequest{
		Tenant:   "wyndham",
		Question: "What is the capital of France?",
	})
	require.NoError(t, err)

	assert.Equal(t, answer.NoInformationAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, callsBefore, f.completer.calls, "model must not be consulted for an ungrounded question")
}

func TestAskIsIdempotentForUnchangedIndex(t *testing.T) {
	f := newFixture(t)
	f.indexTenant(t, "wyndham", "bins.txt", "Recycling is collected every second Tuesday.")
	f.indexTenant(t, "wyndham", "bins.txt", "Recycling is collected every second Tuesday.")

	req := models.AskRequest{Tenant: "wyndham", Question: "When is recycling collected?"}
	first, err := f.service.Ask(context.Background(), req)
	require.NoError(t, err)
	second, err := f.service.Ask(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, first.Answer, second.Answer)
}

func TestAskTenantIsolation(t *testing.T) {
	f := newFixture(t)
	f.indexTenant(t, "wyndham", "wyndham-bins.txt", "Recycling is collected every second Tuesday.")
	f.indexTenant(t, "brimbank", "brimbank-dogs.txt", "Dogs must be leashed in every reserve.")

	resp, err := f.service.Ask(context.Background(), models.AskRequest{
		Tenant:   "wyndham",
		Question: "Where must dogs be leashed in a reserve?",
	})
	require.NoError(t, err)

	for _, src := range resp.Sources {
		assert.NotEqual(t, "brimbank-dogs.txt", src.Document,
			"wyndham answers must never cite brimbank documents")
	}
}

func TestAskWithoutIndex(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ask(context.Background(), models.AskRequest{
		Tenant:   "melbourne",
		Question: "When is recycling collected?",
	})
	assert.ErrorIs(t, err, cerr.ErrIndexNotFound)
}

func TestAskQuotaGate(t *testing.T) {
	f := newFixture(t)
	f.indexTenant(t, "wyndham", "bins.txt", "Recycling is collected every second Tuesday.")

	// Burn the whole basic allowance directly through the governor.
	policy, _ := models.PolicyFor(models.PlanBasic)
	for i := 0; i < policy.QueryLimit; i++ {
		require.NoError(t, f.governor.CheckAndIncrement("wyndham", models.PlanBasic))
	}

	_, err := f.service.Ask(context.Background(), models.AskRequest{
		Tenant:   "wyndham",
		Question: "When is recycling collected?",
	})
	require.Error(t, err)
	assert.True(t, cerr.IsQuotaExceeded(err))
}

func TestAskTranslation(t *testing.T) {
	f := newFixture(t)
	f.indexTenant(t, "wyndham", "bins.txt", "Recycling is collected every second Tuesday.")

	resp, err := f.service.Ask(context.Background(), models.AskRequest{
		Tenant:   "wyndham",
		Question: "When is recycling collected?",
		Language: "vi",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.TranslatedAnswer)
	assert.NotEqual(t, resp.Answer, resp.TranslatedAnswer)
}

func TestAskRecordsQueryLog(t *testing.T) {
	f := newFixture(t)
	f.indexTenant(t, "wyndham", "bins.txt", "Recycling is collected every second Tuesday.")

	_, err := f.service.Ask(context.Background(), models.AskRequest{
		Tenant:   "wyndham",
		Question: "When is recycling collected?",
		Role:     "resident",
	})
	require.NoError(t, err)

	records, err := f.governor.RecentQueries("wyndham", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "When is recycling collected?", records[0].Question)
	assert.Equal(t, "resident", records[0].Role)
}
