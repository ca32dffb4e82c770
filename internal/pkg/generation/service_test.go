package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/focusdiff/focusdiff/app/models"
	"github.com/focusdiff/focusdiff/internal/pkg/ledger"
)

// fakeLedger implements CreditLedger with the clamp semantics of the real
// service.
type fakeLedger struct {
	balances map[uint]int
}

func (f *fakeLedger) Balance(ctx context.Context, userID uint) (int, error) {
	return f.balances[userID], nil
}

func (f *fakeLedger) Adjust(ctx context.Context, userID uint, delta int) (int, error) {
	next := f.balances[userID] + delta
	if next < 0 {
		next = 0
	}
	f.balances[userID] = next
	return next, nil
}

// fakeClient records external calls and returns canned results.
type fakeClient struct {
	imageCalls int
	videoCalls int
	imageOut   *ImageOutput
	videoOut   *VideoOutput
	imageErr   error
	videoErr   error
	logs       []string
}

func (f *fakeClient) GenerateImage(ctx context.Context, input ImageInput, onLog func(string)) (*ImageOutput, error) {
	f.imageCalls++
	for _, l := range f.logs {
		onLog(l)
	}
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.imageOut, nil
}

func (f *fakeClient) GenerateVideo(ctx context.Context, input VideoInput, onLog func(string)) (*VideoOutput, error) {
	f.videoCalls++
	for _, l := range f.logs {
		onLog(l)
	}
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.videoOut, nil
}

// fakeGenerationRepo is an in-memory repository.GenerationRepository.
type fakeGenerationRepo struct {
	rows []models.Generation
}

func (f *fakeGenerationRepo) Create(g *models.Generation) error {
	g.ID = uint(len(f.rows) + 1)
	f.rows = append(f.rows, *g)
	return nil
}

func (f *fakeGenerationRepo) GetByUUID(uuid string) (*models.Generation, error) {
	for i := range f.rows {
		if f.rows[i].UUID == uuid {
			return &f.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeGenerationRepo) GetByUserID(userID uint, offset, limit int) ([]models.Generation, error) {
	var out []models.Generation
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeGenerationRepo) LatestImageByUserID(userID uint) (*models.Generation, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == userID && f.rows[i].Kind == models.GenerationKindImage {
			return &f.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeGenerationRepo) Update(g *models.Generation) error { return nil }

func (f *fakeGenerationRepo) CountByUserID(userID uint) (int64, error) {
	n, _ := f.GetByUserID(userID, 0, 0)
	return int64(len(n)), nil
}

func imageOut(url string) *ImageOutput {
	return &ImageOutput{Images: []ImageRef{{URL: url}}}
}

func videoOut(url string) *VideoOutput {
	out := &VideoOutput{}
	out.Video.URL = url
	return out
}

func newTestService(client *fakeClient, balances map[uint]int) (*Service, *fakeLedger, *fakeGenerationRepo) {
	credits := &fakeLedger{balances: balances}
	repo := &fakeGenerationRepo{}
	svc := NewService(client, credits, repo, NewProgressStore(), nil)
	return svc, credits, repo
}

func TestGenerateInsufficientCreditsMakesNoExternalCall(t *testing.T) {
	client := &fakeClient{imageOut: imageOut("https://cdn.example/img.png")}
	svc, credits, _ := newTestService(client, map[uint]int{2: 0})

	_, balance, err := svc.Generate(context.Background(), 2, GenerateRequest{Prompt: "a fox"})
	assert.ErrorIs(t, err, ledger.ErrInsufficientCredits)
	assert.Equal(t, 0, balance)
	assert.Equal(t, 0, client.imageCalls)
	assert.Equal(t, 0, credits.balances[2])
}

func TestGenerateSuccessDebitsOneAndPublishesImage(t *testing.T) {
	client := &fakeClient{imageOut: imageOut("https://cdn.example/img.png")}
	svc, credits, repo := newTestService(client, map[uint]int{1: 1})

	gen, balance, err := svc.Generate(context.Background(), 1, GenerateRequest{Prompt: "a fox"})
	require.NoError(t, err)
	assert.Equal(t, 1, client.imageCalls)
	assert.Equal(t, 0, balance)
	assert.Equal(t, 0, credits.balances[1])
	assert.Equal(t, "https://cdn.example/img.png", gen.ResultURL)
	assert.Equal(t, models.GenerationKindImage, gen.Kind)
	assert.Equal(t, CostImage, gen.Cost)
	assert.Len(t, repo.rows, 1)
}

func TestGenerateExternalFailureLeavesBalanceUntouched(t *testing.T) {
	client := &fakeClient{imageErr: errors.New("model overloaded")}
	svc, credits, repo := newTestService(client, map[uint]int{1: 20})

	_, balance, err := svc.Generate(context.Background(), 1, GenerateRequest{Prompt: "a fox"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
	assert.Equal(t, 20, balance)
	assert.Equal(t, 20, credits.balances[1])
	assert.Empty(t, repo.rows)
}

func TestGenerateStreamsProgressLines(t *testing.T) {
	client := &fakeClient{
		imageOut: imageOut("https://cdn.example/img.png"),
		logs:     []string{"queued", "", "denoising 50%", "denoising 50%", "done"},
	}
	svc, _, _ := newTestService(client, map[uint]int{1: 5})

	_, _, err := svc.Generate(context.Background(), 1, GenerateRequest{Prompt: "a fox"})
	require.NoError(t, err)
	assert.Equal(t, []string{"queued", "denoising 50%", "done"}, svc.Progress().Lines(1))
}

func TestAnimateWithoutPriorImageRejectedLocally(t *testing.T) {
	client := &fakeClient{videoOut: videoOut("https://cdn.example/vid.mp4")}
	svc, _, _ := newTestService(client, map[uint]int{1: 20})

	_, _, err := svc.Animate(context.Background(), 1, AnimateRequest{Movement: 127, Similarity: 0.02})
	assert.ErrorIs(t, err, ErrNoSourceImage)
	assert.Equal(t, 0, client.videoCalls)
}

func TestAnimateInsufficientCredits(t *testing.T) {
	client := &fakeClient{videoOut: videoOut("https://cdn.example/vid.mp4")}
	svc, _, repo := newTestService(client, map[uint]int{1: 3})
	repo.rows = append(repo.rows, models.Generation{UserID: 1, Kind: models.GenerationKindImage, ResultURL: "https://cdn.example/img.png"})

	_, balance, err := svc.Animate(context.Background(), 1, AnimateRequest{Movement: 127, Similarity: 0.02})
	assert.ErrorIs(t, err, ledger.ErrInsufficientCredits)
	assert.Equal(t, 3, balance)
	assert.Equal(t, 0, client.videoCalls)
}

func TestAnimateSuccessDebitsFourAndPublishesVideo(t *testing.T) {
	client := &fakeClient{videoOut: videoOut("https://cdn.example/vid.mp4")}
	svc, credits, repo := newTestService(client, map[uint]int{1: 19})
	repo.rows = append(repo.rows, models.Generation{UserID: 1, Kind: models.GenerationKindImage, Prompt: "a fox", ResultURL: "https://cdn.example/img.png"})

	gen, balance, err := svc.Animate(context.Background(), 1, AnimateRequest{Movement: 127, Similarity: 0.02})
	require.NoError(t, err)
	assert.Equal(t, 1, client.videoCalls)
	assert.Equal(t, 15, balance)
	assert.Equal(t, 15, credits.balances[1])
	assert.Equal(t, models.GenerationKindVideo, gen.Kind)
	assert.Equal(t, "https://cdn.example/vid.mp4", gen.ResultURL)
	assert.Equal(t, CostVideo, gen.Cost)
}

func TestAnimateRejectsOutOfRangeParameters(t *testing.T) {
	client := &fakeClient{videoOut: videoOut("https://cdn.example/vid.mp4")}
	svc, _, repo := newTestService(client, map[uint]int{1: 20})
	repo.rows = append(repo.rows, models.Generation{UserID: 1, Kind: models.GenerationKindImage, ResultURL: "https://cdn.example/img.png"})

	_, _, err := svc.Animate(context.Background(), 1, AnimateRequest{Movement: 300, Similarity: 0.02})
	require.Error(t, err)
	assert.Equal(t, 0, client.videoCalls)

	_, _, err = svc.Animate(context.Background(), 1, AnimateRequest{Movement: 127, Similarity: 0.5})
	require.Error(t, err)
	assert.Equal(t, 0, client.videoCalls)
}

func TestFreshIdentityScenario(t *testing.T) {
	// u1 signs in with 20 credits, generates, animates, then buys credits.
	client := &fakeClient{
		imageOut: imageOut("https://cdn.example/img.png"),
		videoOut: videoOut("https://cdn.example/vid.mp4"),
	}
	svc, credits, _ := newTestService(client, map[uint]int{1: 20})

	_, balance, err := svc.Generate(context.Background(), 1, GenerateRequest{Prompt: "a serene landscape"})
	require.NoError(t, err)
	assert.Equal(t, 19, balance)

	_, balance, err = svc.Animate(context.Background(), 1, AnimateRequest{Movement: 127, Similarity: 0.02})
	require.NoError(t, err)
	assert.Equal(t, 15, balance)

	balance, err = credits.Adjust(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 115, balance)
}
