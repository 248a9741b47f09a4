package uploads

import (
	"context"
	"errors"
	"io"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"saku-backend/internal/shared/storage/object"
	"saku-backend/internal/shared/util"
)

const (
	localTokenTTL   = 30 * time.Minute
	presignTokenTTL = 10 * time.Minute
	sweepInterval   = time.Minute
)

var (
	// ErrTokenNotFound means the token was never issued or already swept.
	ErrTokenNotFound = errors.New("upload token not found")
	// ErrTokenExpired means the token outlived its TTL before use.
	ErrTokenExpired = errors.New("upload token expired")
	// ErrTokenConsumed means the token was already used once.
	ErrTokenConsumed = errors.New("upload token already consumed")
)

// UploadInfo records what landed behind an object URI.
type UploadInfo struct {
	Size        int64
	ContentType string
	UploadedAt  time.Time
}

// IssueResult is handed back to the caller requesting an upload slot.
type IssueResult struct {
	Token            string
	UploadURL        string
	ObjectURI        string
	ExpiresInSeconds int64
	Presigned        bool
}

type ticket struct {
	meetingID   string
	storageKey  string
	objectURI   string
	contentType string
	expiresAt   time.Time
	consumed    bool
}

// Manager issues single-use upload tokens and tracks consumed uploads.
// State is process-local and never persisted; tokens do not survive a
// restart.
type Manager struct {
	Store object.ObjectStore

	mu       sync.Mutex
	tickets  map[string]*ticket
	uploaded map[string]UploadInfo

	stop chan struct{}
	once sync.Once
}

// NewManager constructs a Manager and starts the expiry sweeper.
func NewManager(store object.ObjectStore) *Manager {
	m := &Manager{
		Store:    store,
		tickets:  make(map[string]*ticket),
		uploaded: make(map[string]UploadInfo),
		stop:     make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Close stops the expiry sweeper.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

// Issue reserves a destination for an upload and returns where to send the
// bytes. Stores that can presign hand out a direct URL with a short TTL;
// local stores route the upload back through the API with a longer one.
func (m *Manager) Issue(ctx context.Context, meetingID, fileName, contentType string) (IssueResult, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return IssueResult{}, err
	}

	token := uuid.NewString()
	storageKey := path.Join("meetings", meetingID, token+"-"+sanitized)
	objectURI := m.Store.URI(storageKey)

	ttl := localTokenTTL
	uploadURL := "/api/v1/uploads/" + token
	presigned := false
	if pw, ok := m.Store.(object.PresignedWriter); ok {
		signed, err := pw.SignedWriteURL(ctx, storageKey, contentType, presignTokenTTL)
		if err != nil {
			return IssueResult{}, err
		}
		ttl = presignTokenTTL
		uploadURL = signed
		presigned = true
	}

	m.mu.Lock()
	m.tickets[token] = &ticket{
		meetingID:   meetingID,
		storageKey:  storageKey,
		objectURI:   objectURI,
		contentType: contentType,
		expiresAt:   time.Now().Add(ttl),
	}
	m.mu.Unlock()

	return IssueResult{
		Token:            token,
		UploadURL:        uploadURL,
		ObjectURI:        objectURI,
		ExpiresInSeconds: int64(ttl.Seconds()),
		Presigned:        presigned,
	}, nil
}

// Consume writes the body to the token's destination. A token is spent the
// moment consumption starts, so concurrent calls with the same token cannot
// both write.
func (m *Manager) Consume(ctx context.Context, token string, body io.Reader) (string, UploadInfo, error) {
	m.mu.Lock()
	tk, ok := m.tickets[token]
	if !ok {
		m.mu.Unlock()
		return "", UploadInfo{}, ErrTokenNotFound
	}
	if tk.consumed {
		m.mu.Unlock()
		return "", UploadInfo{}, ErrTokenConsumed
	}
	if time.Now().After(tk.expiresAt) {
		delete(m.tickets, token)
		m.mu.Unlock()
		return "", UploadInfo{}, ErrTokenExpired
	}
	tk.consumed = true
	m.mu.Unlock()

	size, err := m.Store.SaveWithKey(ctx, tk.storageKey, tk.contentType, body)
	if err != nil {
		// Nothing landed, so give the token back for a retry.
		m.mu.Lock()
		tk.consumed = false
		m.mu.Unlock()
		return "", UploadInfo{}, err
	}

	info := UploadInfo{
		Size:        size,
		ContentType: tk.contentType,
		UploadedAt:  time.Now().UTC(),
	}
	m.mu.Lock()
	m.uploaded[tk.objectURI] = info
	m.mu.Unlock()

	return tk.objectURI, info, nil
}

// Uploaded reports whether an object URI was written through this manager
// and with what size and content type.
func (m *Manager) Uploaded(objectURI string) (UploadInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.uploaded[objectURI]
	return info, ok
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, tk := range m.tickets {
		if now.After(tk.expiresAt) {
			delete(m.tickets, token)
		}
	}
}
