package services_test

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/naryn-heritage/heritage-backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	subject string
	body    string
	to      []string
}

// recordingNotifier captures notifications synchronously.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) Notify(subject, body string, to []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{subject: subject, body: body, to: to})
}

func (n *recordingNotifier) all() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.sent...)
}

// fakeCodec returns a fixed JPEG payload, or fails when the input is "bad".
type fakeCodec struct{}

func (fakeCodec) Compress(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(data, []byte("bad")) {
		return nil, io.ErrUnexpectedEOF
	}
	return []byte("jpeg:" + string(data)), nil
}

// fakeRenderer encodes the target URL as the "PNG" so tests can read it back.
type fakeRenderer struct{}

func (fakeRenderer) Render(url string) ([]byte, error) {
	return []byte("png:" + url), nil
}

type fixture struct {
	db     *gorm.DB
	author *authz.Actor
	other  *authz.Actor
	admin  *authz.Actor
	super  *authz.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	actor := func(email, role string) *authz.Actor {
		u := testutil.CreateUser(t, db, email, role)
		return &authz.Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
	}
	return &fixture{
		db:     db,
		author: actor("author@example.com", models.RoleUser),
		other:  actor("other@example.com", models.RoleUser),
		admin:  actor("admin@example.com", models.RoleAdmin),
		super:  actor("owner@example.com", models.RoleSuperAdmin),
	}
}

// seed inserts one item of kind owned by owner in the given status.
func seed(t *testing.T, db *gorm.DB, kind models.Kind, owner uuid.UUID, status models.Status) models.Moderatable {
	t.Helper()
	item, err := models.NewContent(kind)
	require.NoError(t, err)

	base := item.Base()
	base.UserID = owner
	base.Title = string(kind) + " " + string(status)
	base.Status = status
	base.IsPublished = status == models.StatusPublished

	slug := string(kind) + "-" + uuid.NewString()[:8]
	switch v := item.(type) {
	case *models.Article:
		v.Slug, v.Body = slug, "body"
	case *models.Story:
		v.Slug, v.Body = slug, "body"
	case *models.Landmark:
		v.Slug, v.Body, v.Location = slug, "body", "Naryn"
	case *models.Image:
		v.File = "uploads/images/" + slug + ".jpg"
	case *models.Video:
		v.VideoURL = "https://example.com/" + slug
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func reload(t *testing.T, db *gorm.DB, ref models.ContentRef) *models.ContentBase {
	t.Helper()
	item, err := models.NewContent(ref.Kind)
	require.NoError(t, err)
	require.NoError(t, db.First(item, ref.ObjectID).Error)
	return item.Base()
}

func logsFor(t *testing.T, db *gorm.DB, ref models.ContentRef) []models.ModerationLog {
	t.Helper()
	var logs []models.ModerationLog
	require.NoError(t, db.Where("content_kind = ? AND object_id = ?", ref.Kind, ref.ObjectID).
		Order("id").Find(&logs).Error)
	return logs
}
