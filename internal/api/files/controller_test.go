package files

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davnau/medialens/internal/file"
)

type fakeService struct {
	records map[string]*file.Record
	err     error
}

func newFakeService() *fakeService {
	return &fakeService{records: map[string]*file.Record{}}
}

func (service *fakeService) Register(record *file.Record) error {
	if service.err != nil {
		return service.err
	}
	service.records[record.FileKey] = record
	return nil
}

func (service *fakeService) Lookup(fileKey string) (*file.Record, error) {
	record, ok := service.records[fileKey]
	if !ok {
		return nil, file.ErrFileNotFound
	}
	return record, nil
}

func newTestRouter(service Service) *echo.Echo {
	ec := echo.New()
	New(service).SetRoutes(ec.Group("/files"))
	return ec
}

func postJSON(router *echo.Echo, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

const validRegistration = `{
	"file_key": "abc123",
	"file_name": "holiday.mp4",
	"size_bytes": 4096,
	"mime_type": "video/mp4",
	"storage_ref": "https://storage.example/abc123"
}`

func TestRegister_Success(t *testing.T) {
	service := newFakeService()
	router := newTestRouter(service)

	recorder := postJSON(router, "/files/", validRegistration)

	require.Equal(t, http.StatusCreated, recorder.Code)
	require.Contains(t, service.records, "abc123")
	assert.Equal(t, "holiday.mp4", service.records["abc123"].FileName)
	assert.Contains(t, recorder.Body.String(), `"file_key":"abc123"`)
}

func TestRegister_RejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		summary string
		body    string
	}{
		{summary: "malformed JSON", body: `{"file_key": `},
		{summary: "missing file key", body: `{"file_name": "a.mp4", "storage_ref": "https://s.example/a"}`},
		{summary: "missing storage ref", body: `{"file_key": "k", "file_name": "a.mp4"}`},
		{summary: "storage ref is not a URL", body: `{"file_key": "k", "file_name": "a.mp4", "storage_ref": "not a url"}`},
		{summary: "negative size", body: `{"file_key": "k", "file_name": "a.mp4", "size_bytes": -1, "storage_ref": "https://s.example/a"}`},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			service := newFakeService()
			router := newTestRouter(service)

			recorder := postJSON(router, "/files/", test.body)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Empty(t, service.records)
		})
	}
}

func TestGet_ReturnsRegisteredRecord(t *testing.T) {
	service := newFakeService()
	router := newTestRouter(service)

	require.Equal(t, http.StatusCreated, postJSON(router, "/files/", validRegistration).Code)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/files/abc123/", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"file_name":"holiday.mp4"`)
}

func TestGet_UnknownFile(t *testing.T) {
	router := newTestRouter(newFakeService())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/files/nope/", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
