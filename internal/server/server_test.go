package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"peopleops/internal/assist"
	"peopleops/internal/config"
	"peopleops/internal/document"
	"peopleops/internal/retrieval"
	"peopleops/internal/store"
	"peopleops/internal/types"
	"peopleops/internal/usage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakeGenerator answers with canned text so no API key is needed.
type fakeGenerator struct{ reply string }

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	return f.reply, nil
}

// newTestServer assembles a full server over a temp workspace.
func newTestServer(t *testing.T, gen assist.Generator) *Server {
	t.Helper()
	ws := t.TempDir()

	st, err := store.New(filepath.Join(ws, "hr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.InsertEmployee(ctx, types.Employee{
		EmployeeID: "EMP0001", FirstName: "Ann", LastName: "Zimmer",
		Email: "ann@company.com", Department: "Sales", Position: "Account Executive",
		HireDate: "2021-04-01", Salary: 72000, Status: types.StatusActive,
	}))
	require.NoError(t, st.InsertTransfer(ctx, types.Transfer{
		EmployeeID: "EMP0001", FromDepartment: "Sales", ToDepartment: "Marketing",
		TransferDate: "2024-02-01", Reason: "Employee request",
	}))
	require.NoError(t, st.InsertFeedback(ctx, types.Feedback{
		EmployeeID: "EMP0001", FeedbackDate: "2024-03-01",
		FeedbackType: "Peer Feedback", Rating: 5, Reviewer: "Bob",
	}))

	docs, err := document.NewStore(filepath.Join(ws, "uploads"), filepath.Join(ws, "chunks.json"), 250, 50)
	require.NoError(t, err)

	retriever := retrieval.New(docs)
	tracker, err := usage.NewTracker(ws)
	require.NoError(t, err)

	assistant := assist.NewWithGenerator(gen, retriever, tracker,
		retrieval.ContextLimits{MaxChunks: 5, MaxChars: 8000})

	cfg := config.DefaultConfig()
	cfg.Documents.Watch = false
	return New(cfg, st, docs, retriever, assistant, tracker)
}

// doJSON performs a request and decodes the response body.
func doJSON(t *testing.T, s *Server, method, path string, body []byte) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	out := make(map[string]json.RawMessage)
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `"ok"`, string(body["status"]))
}

func TestEmployees(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := doJSON(t, s, http.MethodGet, "/api/v1/employees", nil)
	require.Equal(t, http.StatusOK, code)

	var employees []types.Employee
	require.NoError(t, json.Unmarshal(body["data"], &employees))
	require.Len(t, employees, 1)
	assert.Equal(t, "EMP0001", employees[0].EmployeeID)
}

func TestOverview(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := doJSON(t, s, http.MethodGet, "/api/v1/overview", nil)
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Headcount        int  `json:"headcount"`
		Departments      int  `json:"departments"`
		Documents        int  `json:"documents"`
		AssistantEnabled bool `json:"assistant_enabled"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &data))
	assert.Equal(t, 1, data.Headcount)
	assert.Equal(t, 1, data.Departments)
	assert.Equal(t, 0, data.Documents)
	assert.False(t, data.AssistantEnabled)
}

func TestRecentTransfers_LimitValidation(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := doJSON(t, s, http.MethodGet, "/api/v1/transfers/recent?limit=5", nil)
	assert.Equal(t, http.StatusOK, code)

	for _, bad := range []string{"0", "-3", "abc", "9999"} {
		code, body := doJSON(t, s, http.MethodGet, "/api/v1/transfers/recent?limit="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, code, "limit=%s", bad)
		assert.NotEmpty(t, body["error"])
	}
}

func TestFeedbackSummary(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := doJSON(t, s, http.MethodGet, "/api/v1/feedback/summary", nil)
	require.Equal(t, http.StatusOK, code)

	var sum types.FeedbackSummary
	require.NoError(t, json.Unmarshal(body["data"], &sum))
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 5.0, sum.AvgRating)
}

func uploadFile(t *testing.T, s *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestDocumentUploadListDelete(t *testing.T) {
	s := newTestServer(t, nil)

	rec := uploadFile(t, s, "handbook.txt", "The vacation policy grants 20 PTO days per year.")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	code, body := doJSON(t, s, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, code)
	var docs []types.DocumentInfo
	require.NoError(t, json.Unmarshal(body["data"], &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "handbook.txt", docs[0].Name)

	code, _ = doJSON(t, s, http.MethodDelete, "/api/v1/documents/handbook.txt", nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/documents", nil)
	assert.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body["data"], &docs))
	assert.Empty(t, docs)
}

func TestDocumentUpload_Unsupported(t *testing.T) {
	s := newTestServer(t, nil)
	rec := uploadFile(t, s, "report.pdf", "%PDF-1.4")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported")
}

func TestDocumentDelete_NotFound(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := doJSON(t, s, http.MethodDelete, "/api/v1/documents/nope.txt", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, body["error"])
}

func TestAsk_WithGenerator(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{reply: "You get 20 PTO days."})
	rec := uploadFile(t, s, "handbook.txt", "The vacation policy grants 20 PTO days per year.")
	require.Equal(t, http.StatusCreated, rec.Code)

	payload, _ := json.Marshal(map[string]string{"question": "What is the vacation policy?"})
	code, body := doJSON(t, s, http.MethodPost, "/api/v1/assistant/ask", payload)
	require.Equal(t, http.StatusOK, code)

	var ans types.Answer
	require.NoError(t, json.Unmarshal(body["data"], &ans))
	assert.Equal(t, "You get 20 PTO days.", ans.Text)
	assert.True(t, ans.Generated)
	assert.Equal(t, []string{"handbook.txt"}, ans.Sources)

	// Answered query shows up in usage.
	code, body = doJSON(t, s, http.MethodGet, "/api/v1/usage", nil)
	require.Equal(t, http.StatusOK, code)
	var stats usage.Stats
	require.NoError(t, json.Unmarshal(body["data"], &stats))
	assert.Equal(t, 1, stats.TotalQueries)
}

// Documents indexed outside the HTTP handlers (the directory watcher calls
// Store.Add directly) must also refresh cached answers.
func TestAsk_RefreshesAfterWatcherIndex(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{reply: "You get 20 PTO days."})

	payload, _ := json.Marshal(map[string]string{"question": "What is the vacation policy?"})
	code, body := doJSON(t, s, http.MethodPost, "/api/v1/assistant/ask", payload)
	require.Equal(t, http.StatusOK, code)

	var ans types.Answer
	require.NoError(t, json.Unmarshal(body["data"], &ans))
	assert.False(t, ans.FromDocuments, "nothing indexed yet")

	// Index through the store, the same path the watcher takes.
	path := filepath.Join(s.docs.UploadDir(), "handbook.txt")
	require.NoError(t, os.WriteFile(path, []byte("The vacation policy grants 20 PTO days per year."), 0644))
	_, err := s.docs.Add(path)
	require.NoError(t, err)

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/assistant/ask", payload)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body["data"], &ans))
	assert.True(t, ans.FromDocuments, "repeat question must see the new document")
	assert.Equal(t, []string{"handbook.txt"}, ans.Sources)
}

func TestAsk_DisabledAssistantDegrades(t *testing.T) {
	s := newTestServer(t, nil)
	rec := uploadFile(t, s, "handbook.txt", "The vacation policy grants 20 PTO days per year.")
	require.Equal(t, http.StatusCreated, rec.Code)

	payload, _ := json.Marshal(map[string]string{"question": "vacation policy"})
	code, body := doJSON(t, s, http.MethodPost, "/api/v1/assistant/ask", payload)
	require.Equal(t, http.StatusOK, code)

	var ans types.Answer
	require.NoError(t, json.Unmarshal(body["data"], &ans))
	assert.False(t, ans.Generated)
	assert.Contains(t, ans.Text, "20 PTO days")
}

func TestAsk_BadRequest(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := doJSON(t, s, http.MethodPost, "/api/v1/assistant/ask", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/assistant/ask", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSampleQuestions(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := doJSON(t, s, http.MethodGet, "/api/v1/assistant/samples", nil)
	require.Equal(t, http.StatusOK, code)

	var qs []string
	require.NoError(t, json.Unmarshal(body["data"], &qs))
	assert.NotEmpty(t, qs)
}
