package services_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/naryn-heritage/heritage-backend/internal/services"
	"github.com/naryn-heritage/heritage-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQRService(t *testing.T, f *fixture) (*services.QRCodeService, *storage.Memory) {
	t.Helper()
	media := storage.NewMemory()
	return services.NewQRCodeService(f.db, media, fakeRenderer{}, "https://heritage.example/"), media
}

func TestQRCustomWithoutURLIsRejected(t *testing.T) {
	f := newFixture(t)
	svc, media := newQRService(t, f)

	_, err := svc.Create(context.Background(), f.admin, &dto.QRCodeRequest{ContentType: ptr("custom")})

	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "custom_url", verr.Field)
	assert.Equal(t, "Custom URL is required when content type is custom", verr.Message)
	assert.Empty(t, media.Keys())

	var n int64
	f.db.Model(&models.QRCode{}).Count(&n)
	assert.Zero(t, n)
}

func TestValidateQRCode(t *testing.T) {
	id := uint(3)
	cases := []struct {
		name  string
		q     models.QRCode
		field string
	}{
		{"unknown type", models.QRCode{Title: "x", ContentType: "podcast"}, "content_type"},
		{"missing article", models.QRCode{Title: "x", ContentType: models.QRArticle}, "article"},
		{"missing landmark", models.QRCode{Title: "x", ContentType: models.QRLandmark}, "landmark"},
		{"extra target", models.QRCode{Title: "x", ContentType: models.QRStory, StoryID: &id, ArticleID: &id}, "article"},
		{"extra custom url", models.QRCode{Title: "x", ContentType: models.QRStory, StoryID: &id, CustomURL: "https://a.b"}, "custom_url"},
		{"missing title", models.QRCode{ContentType: models.QRStory, StoryID: &id}, "title"},
		{"bad scheme", models.QRCode{Title: "x", ContentType: models.QRCustom, CustomURL: "ftp://a.b"}, "custom_url"},
		{"valid", models.QRCode{Title: "x", ContentType: models.QRCustom, CustomURL: "https://naryn.kg"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := services.Validate(&tc.q)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *services.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestQRCodeForLandmark(t *testing.T) {
	f := newFixture(t)
	svc, media := newQRService(t, f)
	ctx := context.Background()

	landmark := seed(t, f.db, models.KindLandmark, f.author.UserID, models.StatusPublished)
	slug := landmark.(*models.Landmark).Slug

	_, err := svc.Create(ctx, f.author, &dto.QRCodeRequest{Title: ptr("Gate"), ContentType: ptr("landmark"), LandmarkID: ptr(landmark.Base().ID)})
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	q, err := svc.Create(ctx, f.admin, &dto.QRCodeRequest{
		Title: ptr("Gate"), ContentType: ptr("landmark"), LandmarkID: ptr(landmark.Base().ID),
	})
	require.NoError(t, err)
	assert.True(t, q.IsActive)
	assert.Equal(t, "qrcodes/qrcode_"+q.UUID.String()+".png", q.ImageKey)

	rc, err := svc.Image(ctx, q.ID)
	require.NoError(t, err)
	png, _ := io.ReadAll(rc)
	rc.Close()
	want := "https://heritage.example/content/landmark/" + slug + "/"
	assert.Equal(t, "png:"+want, string(png))

	target, err := svc.ResolveScan(q.UUID)
	require.NoError(t, err)
	assert.Equal(t, want, target)

	updated, err := svc.Update(ctx, q.ID, f.admin, &dto.QRCodeRequest{
		ContentType: ptr("custom"), LandmarkID: ptr(uint(0)), CustomURL: ptr("https://naryn.kg/tour"),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.LandmarkID)
	rc, err = svc.Image(ctx, q.ID)
	require.NoError(t, err)
	png, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png:https://naryn.kg/tour", string(png))

	_, err = svc.Update(ctx, q.ID, f.admin, &dto.QRCodeRequest{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = svc.ResolveScan(q.UUID)
	assert.ErrorIs(t, err, services.ErrQRCodeNotFound)

	_, total, err := svc.List(nil, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	_, total, err = svc.List(f.admin, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	require.NoError(t, svc.Delete(ctx, q.ID, f.admin))
	assert.Empty(t, media.Keys())
	_, err = svc.Get(q.ID)
	assert.ErrorIs(t, err, services.ErrQRCodeNotFound)
}

func TestQRCodeTargetMustExist(t *testing.T) {
	f := newFixture(t)
	svc, _ := newQRService(t, f)

	_, err := svc.Create(context.Background(), f.admin, &dto.QRCodeRequest{
		Title: ptr("Ghost"), ContentType: ptr("story"), StoryID: ptr(uint(404)),
	})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "story", verr.Field)

	_, err = svc.ResolveScan(uuid.New())
	assert.ErrorIs(t, err, services.ErrQRCodeNotFound)
}
