package session

import (
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Claims is the identity envelope carried by a session token.
type Claims struct {
	Username  string
	DeviceID  string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// TokenManager issues and verifies session tokens.
type TokenManager interface {
	Issue(username, deviceID string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (Claims, error)
	PublicKeyHex() string
	// Ephemeral reports whether the signing key was generated at startup.
	Ephemeral() bool
}

type pasetoV4PublicManager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	ephemeral bool

	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey
}

// NewPasetoV4PublicManager builds a TokenManager based on PASETO v4.public.
//
// An empty key generates a fresh Ed25519 keypair; a malformed key is ErrConfig.
// Clock skew is applied during verification via ValidAt to tolerate minor clock differences.
func NewPasetoV4PublicManager(cfg Config) (TokenManager, error) {
	if cfg.TokenTTL <= 0 || cfg.Issuer == "" {
		return nil, ErrConfig
	}

	var (
		secret    paseto.V4AsymmetricSecretKey
		ephemeral bool
	)
	if cfg.PasetoV4SecretKeyHex == "" {
		secret = paseto.NewV4AsymmetricSecretKey()
		ephemeral = true
	} else {
		k, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.PasetoV4SecretKeyHex)
		if err != nil {
			return nil, ErrConfig
		}
		secret = k
	}

	return &pasetoV4PublicManager{
		issuer:    cfg.Issuer,
		ttl:       cfg.TokenTTL,
		clockSkew: cfg.ClockSkew,
		ephemeral: ephemeral,
		secret:    secret,
		public:    secret.Public(),
	}, nil
}

func (m *pasetoV4PublicManager) PublicKeyHex() string {
	return m.public.ExportHex()
}

func (m *pasetoV4PublicManager) Ephemeral() bool { return m.ephemeral }

func (m *pasetoV4PublicManager) Issue(username, deviceID string, now time.Time) (string, time.Time, error) {
	if username == "" || deviceID == "" {
		return "", time.Time{}, ErrInvalidInput
	}
	exp := now.Add(m.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetSubject(username)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	_ = tok.Set("did", deviceID)

	signed := tok.V4Sign(m.secret, nil)
	return signed, exp, nil
}

func (m *pasetoV4PublicManager) Verify(token string, now time.Time) (Claims, error) {
	// Validate slightly in the future to avoid failing "nbf" when clocks differ.
	validNow := now.Add(m.clockSkew)

	// Build a fresh parser per call to avoid accumulating rules across verifies.
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.issuer))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(validNow))

	parsed, err := p.ParseV4Public(m.public, token, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	iss, _ := parsed.GetIssuer()
	exp, _ := parsed.GetExpiration()
	iat, _ := parsed.GetIssuedAt()

	sub, err := parsed.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrInvalidToken
	}
	did, err := parsed.GetString("did")
	if err != nil || did == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		Username:  sub,
		DeviceID:  did,
		ExpiresAt: exp,
		IssuedAt:  iat,
		Issuer:    iss,
	}, nil
}
