package handlers_test

import (
	"CocoStock/internal/asset"
	"CocoStock/internal/blobstore"
	"CocoStock/internal/config"
	"CocoStock/internal/handlers"
	"CocoStock/internal/middleware"
	"CocoStock/internal/model"
	"CocoStock/internal/monitor"
	"CocoStock/internal/notify"
	"CocoStock/internal/repo"
	"CocoStock/internal/service"
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ repo.UserRepository = (*mockUserRepo)(nil)

// recordingNotifier запоминает поставленные в очередь уведомления.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (n *recordingNotifier) Enqueue(a notify.Alert) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return true
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type testServer struct {
	router   http.Handler
	cfg      *config.Config
	users    *mockUserRepo
	notifier *recordingNotifier
}

// newTestServer: роутер поверх настоящего сервиса: in-memory SQLite и временный каталог blob.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{AuthSecret: "test-secret", BlobMaxSizeMB: 1, LowStockThreshold: 10}
	logger := zap.NewNop().Sugar()

	db, err := repo.InitDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	blobs := repo.NewBlobRepository(db)
	store, err := blobstore.NewFSStore(t.TempDir(), cfg.BlobMaxBytes(), blobs)
	require.NoError(t, err)

	n := &recordingNotifier{}
	assets := asset.NewManager(store, blobs, repo.NewOrphanRepository(db), 2, logger)
	itemSvc := service.NewItemService(repo.NewItemRepository(db), assets, n, monitor.New(cfg.LowStockThreshold, false), logger)

	ur := &mockUserRepo{}
	h := handlers.NewHandler(service.NewUserService(ur), itemSvc, logger, cfg)
	return &testServer{router: h.Router, cfg: cfg, users: ur, notifier: n}
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64, secret string) {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, middleware.SetLoginCookie(rr, userID, secret))
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

type filePart struct {
	name        string
	contentType string
	data        []byte
}

// multipartBody собирает форму с полями и необязательной частью image.
func multipartBody(t *testing.T, fields map[string]string, file *filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, file.name))
		hdr.Set("Content-Type", file.contentType)
		pw, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = pw.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *testServer) do(t *testing.T, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	addAuthCookie(t, req, 1, s.cfg.AuthSecret)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func pngBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, "\x89PNG\r\n\x1a\n")
	return b
}
