package service

import (
	"CocoStock/internal/model"
	"CocoStock/internal/repo"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type userRepoMock struct{ mock.Mock }

func (m *userRepoMock) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

var _ repo.UserRepository = (*userRepoMock)(nil)

func TestUserService_Register(t *testing.T) {
	noUser := (*model.User)(nil)

	tests := []struct {
		name    string
		login   string
		lookup  func(m *userRepoMock)
		create  bool
		wantErr error
	}{
		{
			name:   "free login",
			login:  "picker",
			lookup: func(m *userRepoMock) { m.On("GetUserByLogin", mock.Anything, "picker").Return(noUser, nil).Once() },
			create: true,
		},
		{
			name:  "free login reported as not found, trimmed",
			login: "  picker\t",
			lookup: func(m *userRepoMock) {
				m.On("GetUserByLogin", mock.Anything, "picker").Return(noUser, gorm.ErrRecordNotFound).Once()
			},
			create: true,
		},
		{
			name:  "taken login",
			login: "storekeeper",
			lookup: func(m *userRepoMock) {
				m.On("GetUserByLogin", mock.Anything, "storekeeper").Return(&model.User{ID: 1, Login: "storekeeper"}, nil).Once()
			},
			wantErr: ErrLoginTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(userRepoMock)
			tt.lookup(m)
			if tt.create {
				m.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Login == "picker" && bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("p@ss")) == nil
				})).Return(&model.User{ID: 10, Login: "picker"}, nil).Once()
			}

			user, err := NewUserService(m).Register(context.Background(), tt.login, "p@ss")
			if tt.wantErr != nil {
				assert.Nil(t, user)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(10), user.ID)
			}
			m.AssertExpectations(t)
		})
	}

	t.Run("lookup failure is not a conflict", func(t *testing.T) {
		m := new(userRepoMock)
		boom := errors.New("connection reset")
		m.On("GetUserByLogin", mock.Anything, "picker").Return(noUser, boom).Once()

		_, err := NewUserService(m).Register(context.Background(), "picker", "p@ss")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrLoginTaken)
		m.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})
}

func TestUserService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	keeper := &model.User{ID: 2, Login: "storekeeper", Password: string(hash)}
	boom := errors.New("db down")

	tests := []struct {
		name     string
		password string
		found    *model.User
		findErr  error
		wantErr  error
	}{
		{name: "valid credentials", password: "secret", found: keeper},
		{name: "wrong password", password: "Secret", found: keeper, wantErr: ErrInvalidCredentials},
		{name: "unknown login", password: "secret", findErr: gorm.ErrRecordNotFound, wantErr: ErrInvalidCredentials},
		{name: "storage failure", password: "secret", findErr: boom, wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(userRepoMock)
			m.On("GetUserByLogin", mock.Anything, "storekeeper").Return(tt.found, tt.findErr).Once()

			user, err := NewUserService(m).Login(context.Background(), " storekeeper ", tt.password)
			if tt.wantErr != nil {
				assert.Nil(t, user)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, keeper.ID, user.ID)
			}
			m.AssertExpectations(t)
		})
	}
}
