package reconciler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pixelproof/internal/domain/post"
	"pixelproof/internal/domain/registry"
	"pixelproof/internal/ledger"
)

type mockPostStore struct {
	mock.Mock
}

func (m *mockPostStore) AttachImageID(ctx context.Context, sha256, signingKey string, imageID int64) (int64, error) {
	args := m.Called(ctx, sha256, signingKey, imageID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPostStore) ListByImageID(ctx context.Context, imageID int64) ([]post.Post, error) {
	args := m.Called(ctx, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]post.Post), args.Error(1)
}

func (m *mockPostStore) GetRootByImageID(ctx context.Context, imageID int64) (*post.Post, error) {
	args := m.Called(ctx, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*post.Post), args.Error(1)
}

func (m *mockPostStore) SetLikeCount(ctx context.Context, id string, total int64) error {
	args := m.Called(ctx, id, total)
	return args.Error(0)
}

type mockRegistryStore struct {
	mock.Mock
}

func (m *mockRegistryStore) Create(ctx context.Context, rec *registry.ImageRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockRegistryStore) GetBySHA256(ctx context.Context, sha256 string) (*registry.ImageRecord, error) {
	args := m.Called(ctx, sha256)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.ImageRecord), args.Error(1)
}

func (m *mockRegistryStore) SetImageID(ctx context.Context, sha256 string, imageID int64) error {
	args := m.Called(ctx, sha256, imageID)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID int64, message string) error {
	args := m.Called(ctx, userID, message)
	return args.Error(0)
}

func newReconciler(p *mockPostStore, reg *mockRegistryStore, n *mockNotifier) *Reconciler {
	return New(p, reg, n, zap.NewNop())
}

func TestApply_OriginalRegistration(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	reg.On("GetBySHA256", mock.Anything, "sha-1").Return(nil, registry.ErrRecordNotFound)
	reg.On("Create", mock.Anything, mock.MatchedBy(func(rec *registry.ImageRecord) bool {
		return rec.SHA256 == "sha-1" && rec.ImageID != nil && *rec.ImageID == 7
	})).Return(nil)
	p.On("AttachImageID", mock.Anything, "sha-1", "0xartist", int64(7)).Return(int64(1), nil)

	err := newReconciler(p, reg, n).Apply(context.Background(), ledger.ImageRegistered{
		ImageID: 7,
		SHA256:  "sha-1",
		PHash:   "ph",
		Artist:  "0xartist",
	})
	require.NoError(t, err)
	p.AssertExpectations(t)
	reg.AssertExpectations(t)
}

func TestApply_ReplayedRegistrationIsIdempotent(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	imageID := int64(7)
	reg.On("GetBySHA256", mock.Anything, "sha-1").Return(&registry.ImageRecord{
		SHA256:  "sha-1",
		ImageID: &imageID,
	}, nil)
	p.On("AttachImageID", mock.Anything, "sha-1", "0xartist", int64(7)).Return(int64(0), nil)

	err := newReconciler(p, reg, n).Apply(context.Background(), ledger.ImageRegistered{
		ImageID: 7,
		SHA256:  "sha-1",
		Artist:  "0xartist",
	})
	require.NoError(t, err)
	reg.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	reg.AssertNotCalled(t, "SetImageID", mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_DerivativeRegistrationNotifiesRootOwner(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	p.On("GetRootByImageID", mock.Anything, int64(7)).Return(&post.Post{ID: "root", UserID: 2}, nil)
	n.On("Notify", mock.Anything, int64(2), mock.Anything).Return(nil)

	err := newReconciler(p, reg, n).Apply(context.Background(), ledger.ImageRegistered{
		ImageID:      7,
		SHA256:       "sha-d",
		IsDerivative: true,
	})
	require.NoError(t, err)
	n.AssertExpectations(t)
	p.AssertNotCalled(t, "AttachImageID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	reg.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestApply_LikeUpdatesCountAndNotifies(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	p.On("ListByImageID", mock.Anything, int64(7)).Return([]post.Post{
		{ID: "root", UserID: 2},
	}, nil)
	p.On("SetLikeCount", mock.Anything, "root", int64(3)).Return(nil)
	n.On("Notify", mock.Anything, int64(2), "Your post now has 3 likes").Return(nil)

	err := newReconciler(p, reg, n).Apply(context.Background(), ledger.PostLiked{
		ImageID:    7,
		Liker:      "0xliker",
		TotalLikes: 3,
	})
	require.NoError(t, err)
	p.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestApply_LikeForUnknownImageIsDropped(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	p.On("ListByImageID", mock.Anything, int64(99)).Return([]post.Post{}, nil)

	err := newReconciler(p, reg, n).Apply(context.Background(), ledger.PostLiked{
		ImageID:    99,
		TotalLikes: 1,
	})
	require.NoError(t, err)
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_RoyaltyNotifiesArtist(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	p.On("GetRootByImageID", mock.Anything, int64(7)).Return(&post.Post{ID: "root", UserID: 2}, nil)
	n.On("Notify", mock.Anything, int64(2), mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "0xpayer")
	})).Return(nil)

	err := newReconciler(p, reg, n).Apply(context.Background(), ledger.RoyaltyPaid{
		ImageID: 7,
		Payer:   "0xpayer",
	})
	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestApply_RoyaltyForUnknownImageIsDropped(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	p.On("GetRootByImageID", mock.Anything, int64(99)).Return(nil, post.ErrPostNotFound)

	err := newReconciler(p, reg, n).Apply(context.Background(), ledger.RoyaltyPaid{ImageID: 99})
	require.NoError(t, err)
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_NotificationFailureDoesNotFailEvent(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	p.On("GetRootByImageID", mock.Anything, int64(7)).Return(&post.Post{ID: "root", UserID: 2}, nil)
	n.On("Notify", mock.Anything, int64(2), mock.Anything).Return(assert.AnError)

	err := newReconciler(p, reg, n).Apply(context.Background(), ledger.RoyaltyPaid{ImageID: 7})
	assert.NoError(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	events := make(chan ledger.Event)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		newReconciler(p, reg, n).Run(ctx, events)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop on context cancel")
	}
}

func TestRun_SurvivesFailingEvents(t *testing.T) {
	p := new(mockPostStore)
	reg := new(mockRegistryStore)
	n := new(mockNotifier)

	p.On("ListByImageID", mock.Anything, int64(1)).Return(nil, assert.AnError).Once()
	p.On("ListByImageID", mock.Anything, int64(2)).Return([]post.Post{{ID: "p2", UserID: 2}}, nil)
	p.On("SetLikeCount", mock.Anything, "p2", int64(1)).Return(nil)
	n.On("Notify", mock.Anything, int64(2), mock.Anything).Return(nil)

	events := make(chan ledger.Event, 2)
	events <- ledger.PostLiked{ImageID: 1, TotalLikes: 1}
	events <- ledger.PostLiked{ImageID: 2, TotalLikes: 1}
	close(events)

	newReconciler(p, reg, n).Run(context.Background(), events)
	p.AssertExpectations(t)
}
