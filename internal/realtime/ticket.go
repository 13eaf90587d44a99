package realtime

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Browsers cannot set headers on WebSocket upgrades, so the ws endpoint
// authenticates with a short-lived signed ticket minted over the normal
// cookie-authenticated API just before connecting.

const ticketTTL = 60 * time.Second

type TicketIssuer struct {
	secret []byte
}

func NewTicketIssuer(secret []byte) *TicketIssuer {
	return &TicketIssuer{secret: secret}
}

// Issue mints a ticket for a user.
func (t *TicketIssuer) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ticketTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign ticket: %w", err)
	}
	return signed, nil
}

// Verify checks a ticket and returns the user id it was issued to.
func (t *TicketIssuer) Verify(ticket string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(ticket, &claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse ticket: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ticket subject: %w", err)
	}
	return userID, nil
}
