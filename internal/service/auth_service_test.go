package service_test

import (
	"context"
	"testing"

	"distripos/internal/config"
	"distripos/internal/dto"
	"distripos/internal/model"
	"distripos/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
	}
}

func seedUsuario(repo *stubUsuarioRepo, username, password, rol string, activo bool) *model.Usuario {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &model.Usuario{
		ID:           uuid.New(),
		Username:     username,
		Nombre:       "Usuario " + username,
		PasswordHash: string(hash),
		Rol:          rol,
		Activo:       activo,
	}
	repo.usuarios[u.ID] = u
	repo.userIdx[u.Username] = u
	return u
}

func TestLogin_OK(t *testing.T) {
	repo := newStubUsuarioRepo()
	seedUsuario(repo, "vendedor1", "clave1234", "vendedor", true)
	svc := service.NewAuthService(repo, testConfig())

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "vendedor1", Password: "clave1234"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 8*3600, resp.ExpiresIn)
	assert.Equal(t, "vendedor1", resp.User.Username)
	assert.Equal(t, "vendedor", resp.User.Rol)
}

func TestLogin_PasswordIncorrecta(t *testing.T) {
	repo := newStubUsuarioRepo()
	seedUsuario(repo, "vendedor1", "clave1234", "vendedor", true)
	svc := service.NewAuthService(repo, testConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "vendedor1", Password: "otra"})
	assert.Error(t, err)
}

func TestLogin_UsuarioInactivo(t *testing.T) {
	repo := newStubUsuarioRepo()
	seedUsuario(repo, "exvendedor", "clave1234", "vendedor", false)
	svc := service.NewAuthService(repo, testConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "exvendedor", Password: "clave1234"})
	assert.Error(t, err)
}

func TestRefresh_EmiteNuevosTokens(t *testing.T) {
	repo := newStubUsuarioRepo()
	seedUsuario(repo, "supervisor1", "clave1234", "supervisor", true)
	svc := service.NewAuthService(repo, testConfig())

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "supervisor1", Password: "clave1234"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "supervisor1", refreshed.User.Username)
}

func TestRefresh_TokenInvalido(t *testing.T) {
	svc := service.NewAuthService(newStubUsuarioRepo(), testConfig())

	_, err := svc.Refresh(context.Background(), "no-es-un-jwt")
	assert.Error(t, err)
}

func TestRefresh_UsuarioDesactivado(t *testing.T) {
	repo := newStubUsuarioRepo()
	u := seedUsuario(repo, "vendedor2", "clave1234", "vendedor", true)
	svc := service.NewAuthService(repo, testConfig())

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "vendedor2", Password: "clave1234"})
	require.NoError(t, err)

	u.Activo = false
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	assert.Error(t, err)
}

func TestCrearUsuario_NormalizaCiudad(t *testing.T) {
	repo := newStubUsuarioRepo()
	svc := service.NewAuthService(repo, testConfig())

	resp, err := svc.CrearUsuario(context.Background(), dto.CrearUsuarioRequest{
		Username: "vendedor3",
		Nombre:   "Vendedor Tres",
		Password: "clave1234",
		Rol:      "vendedor",
		Ciudad:   "LA PAZ",
	})
	require.NoError(t, err)
	assert.Equal(t, "la_paz", resp.Ciudad)
	assert.True(t, resp.Activo)
}

func TestDesactivarYReactivarUsuario(t *testing.T) {
	repo := newStubUsuarioRepo()
	u := seedUsuario(repo, "vendedor4", "clave1234", "vendedor", true)
	svc := service.NewAuthService(repo, testConfig())

	require.NoError(t, svc.DesactivarUsuario(context.Background(), u.ID))
	assert.False(t, u.Activo)

	require.NoError(t, svc.ReactivarUsuario(context.Background(), u.ID))
	assert.True(t, u.Activo)

	activos, err := svc.ListarUsuarios(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, activos, 1)
}
