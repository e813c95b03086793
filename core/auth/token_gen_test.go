package auth

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core/user"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := resetTokenGen{secret: []byte("secret"), timeout: 3 * 24 * time.Hour}

	now := time.Now()
	usr := user.User{
		ID:        1,
		Name:      "T",
		Email:     "t@test.test",
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: null.TimeFrom(now),
	}
	_ = usr.SetPassword("pwd")

	validToken := gen.makeToken(usr)

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := gen.makeToken(usr)
	nowFunc = time.Now // reset

	loggedIn := usr
	loggedIn.LastLogin = null.TimeFrom(now.Add(time.Minute))
	otherPwd := usr
	_ = otherPwd.SetPassword("pwd2")

	tests := []struct {
		name    string
		gen     resetTokenGen
		usr     user.User
		token   string
		wantErr error
	}{
		{name: "no token", gen: gen, usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", gen: gen, usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", gen: gen, usr: usr, token: "hahaha-sigsig", wantErr: errInvalidToken},
		{name: "invalid timestamp", gen: gen, usr: usr, token: "NRXWY-sigsig", wantErr: errInvalidToken},
		{name: "invalid signature", gen: gen, usr: usr, token: "HE4TS-sigsig", wantErr: errInvalidToken},
		{name: "other secret", gen: resetTokenGen{secret: []byte("other"), timeout: gen.timeout}, usr: usr, token: validToken, wantErr: errInvalidToken},
		{name: "logged in since", gen: gen, usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "password changed since", gen: gen, usr: otherPwd, token: validToken, wantErr: errInvalidToken},
		{name: "expired token", gen: gen, usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", gen: gen, usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.gen.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	uid := EncodeUID(user.User{ID: 42})
	id, err := decodeUID(uid)
	if err != nil || id != 42 {
		t.Errorf("decodeUID(%q) = %d, %v; want 42", uid, id, err)
	}
	if _, err = decodeUID("%%%"); err == nil {
		t.Error("decodeUID() should fail on invalid base64")
	}
}
