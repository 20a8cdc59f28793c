package service_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vidtube/internal/core/auth"
	"vidtube/internal/core/media"
	"vidtube/internal/domain"
	"vidtube/internal/service"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockUserRepository) RotateRefreshToken(ctx context.Context, id, old, next string) (bool, error) {
	args := m.Called(ctx, id, old, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeStorage 上传即返回固定 URL
type fakeStorage struct {
	url string
	err error
}

func (f *fakeStorage) Upload(ctx context.Context, file *media.File) (string, error) {
	return f.url, f.err
}

func newTestService(users domain.UserRepository) (*service.AuthService, *auth.Issuer, *auth.Hasher) {
	issuer := &auth.Issuer{
		Iss:           "vidtube-test",
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    10 * 24 * time.Hour,
	}
	hasher := auth.NewHasher(bcrypt.MinCost, 4)
	svc := service.NewAuthService(users, hasher, issuer,
		&fakeStorage{url: "https://cdn.test/media/a.png"}, nil, zap.NewNop())
	return svc, issuer, hasher
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var de *domain.Error
	assert.ErrorAs(t, err, &de)
	return de.Status
}

func avatarFile() *media.File {
	return &media.File{Reader: strings.NewReader("png"), Size: 3, Name: "a.png", ContentType: "image/png"}
}

func TestAuthService_Register(t *testing.T) {
	users := new(MockUserRepository)
	svc, _, _ := newTestService(users)
	ctx := context.Background()

	users.On("FindByUsernameOrEmail", mock.Anything, "alice", "a@x.com").Return(nil, nil).Once()
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		// 落库前已哈希，且不是明文
		return u.Username == "alice" && u.Email == "a@x.com" &&
			u.PasswordHash != "" && u.PasswordHash != "Secret1" &&
			u.Avatar == "https://cdn.test/media/a.png"
	})).Return(nil).Once()

	out, err := svc.Register(ctx, service.RegisterInput{
		Fullname: "Alice A",
		Email:    " A@x.com ",
		Username: " Alice ",
		Password: "Secret1",
		Avatar:   avatarFile(),
	})
	assert.NoError(t, err)
	assert.Equal(t, "alice", out.Username)
	assert.Equal(t, "a@x.com", out.Email)
	users.AssertExpectations(t)
}

func TestAuthService_Register_Conflict(t *testing.T) {
	users := new(MockUserRepository)
	svc, _, _ := newTestService(users)

	users.On("FindByUsernameOrEmail", mock.Anything, "alice", "a@x.com").
		Return(&domain.User{ID: "u-1"}, nil).Once()

	_, err := svc.Register(context.Background(), service.RegisterInput{
		Fullname: "Alice A", Email: "a@x.com", Username: "alice", Password: "Secret1",
		Avatar: avatarFile(),
	})
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	users.AssertExpectations(t)
}

func TestAuthService_Register_Validation(t *testing.T) {
	users := new(MockUserRepository)
	svc, _, _ := newTestService(users)
	ctx := context.Background()

	_, err := svc.Register(ctx, service.RegisterInput{
		Fullname: "  ", Email: "a@x.com", Username: "alice", Password: "Secret1", Avatar: avatarFile(),
	})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.Register(ctx, service.RegisterInput{
		Fullname: "Alice A", Email: "a@x.com", Username: "alice", Password: "Secret1", Avatar: nil,
	})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	users.AssertNotCalled(t, "Create")
}

func TestAuthService_Register_UploadFailureBlocks(t *testing.T) {
	users := new(MockUserRepository)
	issuer := &auth.Issuer{Iss: "t", AccessSecret: []byte("a"), RefreshSecret: []byte("r"),
		AccessTTL: time.Minute, RefreshTTL: time.Hour}
	svc := service.NewAuthService(users, auth.NewHasher(bcrypt.MinCost, 4), issuer,
		&fakeStorage{err: errors.New("bucket down")}, nil, zap.NewNop())

	users.On("FindByUsernameOrEmail", mock.Anything, "alice", "a@x.com").Return(nil, nil).Once()

	_, err := svc.Register(context.Background(), service.RegisterInput{
		Fullname: "Alice A", Email: "a@x.com", Username: "alice", Password: "Secret1",
		Avatar: avatarFile(),
	})
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	// 上传挂了就不能留半成品账号
	users.AssertNotCalled(t, "Create")
}

func TestAuthService_Login(t *testing.T) {
	users := new(MockUserRepository)
	svc, issuer, hasher := newTestService(users)
	ctx := context.Background()

	hash, _ := hasher.Hash(ctx, "Secret1")
	u := &domain.User{ID: "u-1", Username: "alice", Email: "a@x.com", Fullname: "Alice A", PasswordHash: hash}

	var stored string
	users.On("FindByUsernameOrEmail", mock.Anything, "alice", "alice").Return(u, nil).Once()
	users.On("SetRefreshToken", mock.Anything, "u-1", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { stored = args.String(2) }).Return(nil).Once()

	pub, pair, err := svc.Login(ctx, "alice", "Secret1")
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	// 库里存的就是返回给客户端的那个 refresh token
	assert.Equal(t, pair.RefreshToken, stored)

	claims, err := issuer.ParseAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "u-1", claims.UID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Alice A", claims.Fullname)

	rc, err := issuer.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, "u-1", rc.UID)

	assert.Equal(t, "alice", pub.Username)
	users.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	users := new(MockUserRepository)
	svc, _, hasher := newTestService(users)
	ctx := context.Background()

	hash, _ := hasher.Hash(ctx, "Secret1")
	u := &domain.User{ID: "u-1", Username: "alice", PasswordHash: hash}
	users.On("FindByUsernameOrEmail", mock.Anything, "alice", "alice").Return(u, nil).Once()

	_, _, err := svc.Login(ctx, "alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	users.AssertNotCalled(t, "SetRefreshToken")
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	users := new(MockUserRepository)
	svc, _, _ := newTestService(users)

	users.On("FindByUsernameOrEmail", mock.Anything, "ghost", "ghost").Return(nil, nil).Once()
	_, _, err := svc.Login(context.Background(), "ghost", "whatever")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestAuthService_Login_PersistFailureVoidsTokens(t *testing.T) {
	users := new(MockUserRepository)
	svc, _, hasher := newTestService(users)
	ctx := context.Background()

	hash, _ := hasher.Hash(ctx, "Secret1")
	u := &domain.User{ID: "u-1", Username: "alice", PasswordHash: hash}
	users.On("FindByUsernameOrEmail", mock.Anything, "alice", "alice").Return(u, nil).Once()
	users.On("SetRefreshToken", mock.Anything, "u-1", mock.Anything).Return(errors.New("db down")).Once()

	pub, pair, err := svc.Login(ctx, "alice", "Secret1")
	// 写库失败是整体失败，刚铸的令牌不能回传
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	assert.Nil(t, pub)
	assert.Nil(t, pair)
}

func TestAuthService_Refresh_Rotation(t *testing.T) {
	users := new(MockUserRepository)
	svc, issuer, _ := newTestService(users)
	ctx := context.Background()

	r1, _ := issuer.IssueRefresh("u-1")
	u := &domain.User{ID: "u-1", Username: "alice", RefreshToken: r1}

	users.On("FindByID", mock.Anything, "u-1").Return(u, nil).Once()
	users.On("RotateRefreshToken", mock.Anything, "u-1", r1, mock.AnythingOfType("string")).
		Return(true, nil).Once()

	pair, err := svc.Refresh(ctx, r1)
	assert.NoError(t, err)
	assert.NotEqual(t, r1, pair.RefreshToken)
	assert.NotEmpty(t, pair.AccessToken)

	// 轮换后库里是 R2，再拿 R1 来刷必须挡掉
	u2 := &domain.User{ID: "u-1", Username: "alice", RefreshToken: pair.RefreshToken}
	users.On("FindByID", mock.Anything, "u-1").Return(u2, nil).Once()

	_, err = svc.Refresh(ctx, r1)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.Contains(t, err.Error(), "refresh token is expired or used")
	users.AssertExpectations(t)
}

func TestAuthService_Refresh_ConcurrentLoserGets401(t *testing.T) {
	users := new(MockUserRepository)
	svc, issuer, _ := newTestService(users)

	r1, _ := issuer.IssueRefresh("u-1")
	u := &domain.User{ID: "u-1", RefreshToken: r1}
	users.On("FindByID", mock.Anything, "u-1").Return(u, nil).Once()
	// 条件写落败：另一个并发请求先换掉了
	users.On("RotateRefreshToken", mock.Anything, "u-1", r1, mock.Anything).Return(false, nil).Once()

	_, err := svc.Refresh(context.Background(), r1)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.Contains(t, err.Error(), "refresh token is expired or used")
}

func TestAuthService_Refresh_InvalidInputs(t *testing.T) {
	users := new(MockUserRepository)
	svc, issuer, _ := newTestService(users)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = svc.Refresh(ctx, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	// 签名合法但用户没了，同样 401，不暴露差别
	gone, _ := issuer.IssueRefresh("u-gone")
	users.On("FindByID", mock.Anything, "u-gone").Return(nil, nil).Once()
	_, err = svc.Refresh(ctx, gone)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestAuthService_Logout(t *testing.T) {
	users := new(MockUserRepository)
	svc, _, _ := newTestService(users)

	users.On("ClearRefreshToken", mock.Anything, "u-1").Return(nil).Once()
	assert.NoError(t, svc.Logout(context.Background(), "u-1"))
	users.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	users := new(MockUserRepository)
	svc, _, hasher := newTestService(users)
	ctx := context.Background()

	hash, _ := hasher.Hash(ctx, "OldSecret")
	u := &domain.User{ID: "u-1", PasswordHash: hash}

	users.On("FindByID", mock.Anything, "u-1").Return(u, nil).Twice()

	// 旧密码错
	err := svc.ChangePassword(ctx, "u-1", "wrong", "NewSecret")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	// 旧密码对，落库的是新密码的哈希
	users.On("UpdateFields", mock.Anything, "u-1", mock.MatchedBy(func(fields map[string]any) bool {
		h, ok := fields["password_hash"].(string)
		return ok && h != "" && h != "NewSecret"
	})).Return(nil).Once()

	assert.NoError(t, svc.ChangePassword(ctx, "u-1", "OldSecret", "NewSecret"))
	users.AssertExpectations(t)
}
