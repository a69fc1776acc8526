package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/kassslll/learnhub/internal/database"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/meeting"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/storage"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a fresh, migrated in-memory sqlite database for one test. The pool
// is pinned to a single connection so every query sees the same memory database
// and concurrent transactions serialize.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := database.GormConfig()
	cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// Blobs is an in-memory blob store that can be told to fail uploads of a kind.
type Blobs struct {
	mu       sync.Mutex
	seq      int
	objects  map[string]models.MediaKind
	failKind map[models.MediaKind]bool
	failDel  bool
	Deleted  []string
}

func NewBlobs() *Blobs {
	return &Blobs{objects: map[string]models.MediaKind{}, failKind: map[models.MediaKind]bool{}}
}

var ErrInjected = errors.New("injected blob store failure")

func (b *Blobs) FailUploads(kind models.MediaKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failKind[kind] = true
}

func (b *Blobs) FailDeletes() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failDel = true
}

func (b *Blobs) Upload(_ context.Context, kind models.MediaKind, f storage.File) (*storage.Object, error) {
	if f.Body != nil {
		_, _ = io.Copy(io.Discard, f.Body)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failKind[kind] {
		return nil, ErrInjected
	}
	b.seq++
	id := fmt.Sprintf("%s/%d-%s", kind, b.seq, f.Name)
	b.objects[id] = kind
	return &storage.Object{PublicID: id, URL: "https://blobs.test/" + id, Duration: f.Duration}, nil
}

func (b *Blobs) Delete(_ context.Context, publicID string, _ models.MediaKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDel {
		return ErrInjected
	}
	delete(b.objects, publicID)
	b.Deleted = append(b.Deleted, publicID)
	return nil
}

// Retained lists the ids still stored.
func (b *Blobs) Retained() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for id := range b.objects {
		out = append(out, id)
	}
	return out
}

func (b *Blobs) Has(publicID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[publicID]
	return ok
}

type Email struct {
	To, Subject, HTML string
}

// Mailer records outgoing email.
type Mailer struct {
	mu   sync.Mutex
	Sent []Email
	Err  error
}

func (m *Mailer) SendEmail(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// Meetings hands out sequential fake meetings.
type Meetings struct {
	mu    sync.Mutex
	Calls []meeting.Request
	Err   error
}

func (m *Meetings) CreateMeeting(_ context.Context, req meeting.Request) (*meeting.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	m.Calls = append(m.Calls, req)
	id := fmt.Sprintf("%d", 1000+len(m.Calls))
	return &meeting.Meeting{
		JoinURL:   "https://meet.test/j/" + id,
		MeetingID: id,
		Topic:     req.Topic,
		StartTime: req.StartTime,
	}, nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func Image(name string) *storage.File {
	return &storage.File{Name: name, ContentType: "image/png", Size: 4, Body: strings.NewReader("\x89PNG")}
}

func Video(name string, seconds float64) *storage.File {
	return &storage.File{Name: name, ContentType: "video/mp4", Size: 4, Body: strings.NewReader("mp4!"), Duration: seconds}
}

func Document(name string) *storage.File {
	return &storage.File{Name: name, ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")}
}
