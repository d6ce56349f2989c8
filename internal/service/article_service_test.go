package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
)

type storageStub struct {
	uploads int
}

func (s *storageStub) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	s.uploads++
	return "https://cdn.example.com/" + name, nil
}

type articleFixture struct {
	service *ArticleService
	storage *storageStub
	doctor  models.User
	patient models.User
}

func setupArticleFixture(t *testing.T) articleFixture {
	t.Helper()
	db := setupServiceDB(t, &models.User{}, &models.Article{})

	doctor := models.User{Username: "doctor", Role: models.RoleDoctor}
	patient := models.User{Username: "patient", Role: models.RolePatient}
	require.NoError(t, db.Create(&doctor).Error)
	require.NoError(t, db.Create(&patient).Error)

	storage := &storageStub{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewArticleService(repository.NewArticleRepository(db), repository.NewUserRepository(db), storage, validate, testLogger())

	return articleFixture{service: svc, storage: storage, doctor: doctor, patient: patient}
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestArticleServiceOnlyMedicalStaffPublish(t *testing.T) {
	fixture := setupArticleFixture(t)

	_, err := fixture.service.Create(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, dto.ArticleCreateRequest{
		Title:   "Self-diagnosis tips",
		Content: "none",
	}, nil)
	require.ErrorIs(t, err, ErrNotAuthorised)

	article, err := fixture.service.Create(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, dto.ArticleCreateRequest{
		Title:   "Post-surgery care",
		Content: "<p>Rest well.</p><script>alert('x')</script>",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "doctor", article.AuthorUsername)
	require.Equal(t, "<p>Rest well.</p>", article.Content)
	require.Empty(t, article.CoverImage)
}

func TestArticleServiceCoverUploadValidatesType(t *testing.T) {
	fixture := setupArticleFixture(t)
	actor := Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}
	req := dto.ArticleCreateRequest{Title: "Hydration", Content: "Drink water."}

	text := buildFileHeader(t, "notes.txt", []byte("plain text body"))
	_, err := fixture.service.Create(context.Background(), actor, req, text)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Zero(t, fixture.storage.uploads)

	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	png := buildFileHeader(t, "cover.png", pngHeader)
	article, err := fixture.service.Create(context.Background(), actor, req, png)
	require.NoError(t, err)
	require.Equal(t, 1, fixture.storage.uploads)
	require.Contains(t, article.CoverImage, "cover.png")
}

func TestArticleServiceDeleteIsAuthorOrAdmin(t *testing.T) {
	fixture := setupArticleFixture(t)
	actor := Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}

	article, err := fixture.service.Create(context.Background(), actor, dto.ArticleCreateRequest{Title: "Stretching", Content: "Daily."}, nil)
	require.NoError(t, err)

	err = fixture.service.Delete(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, article.ID)
	require.ErrorIs(t, err, ErrNotAuthorised)

	require.NoError(t, fixture.service.Delete(context.Background(), Actor{ID: 42, Role: models.RoleAdmin}, article.ID))

	listed, err := fixture.service.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Empty(t, listed)
}
