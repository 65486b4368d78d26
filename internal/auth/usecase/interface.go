package usecase

import (
	authdomain "maildigest-backend/internal/auth/domain"
	authdto "maildigest-backend/internal/auth/dto"
)

// AuthUsecase defines the interface for authentication operations
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	GoogleSignIn(idToken string) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)
	// ConnectIMAP attaches an IMAP mailbox to the account, encrypting the
	// password before storage
	ConnectIMAP(userID string, req *authdto.ConnectIMAPRequest) error
	// DisconnectMail clears the user's mail connection
	DisconnectMail(userID string) error
}
