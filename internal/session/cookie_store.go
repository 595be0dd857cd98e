package session

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
)

// CookieStore は gin-contrib/sessions の Store 実装です。
// Cookie には署名済みのセッションIDだけを書き、値は backend に保存します。
type CookieStore struct {
	backend Store
	codecs  []securecookie.Codec
	options *gsessions.Options
	ttl     time.Duration
	now     func() time.Time
}

// NewCookieStore は CookieStore を作成します。keyPairs は securecookie のハッシュ鍵/暗号鍵の組です。
func NewCookieStore(backend Store, ttl time.Duration, keyPairs ...[]byte) *CookieStore {
	return &CookieStore{
		backend: backend,
		codecs:  securecookie.CodecsFromPairs(keyPairs...),
		options: DefaultOptions().ToGorillaOptions(),
		ttl:     ttl,
		now:     time.Now,
	}
}

// DefaultOptions はブラウザを閉じると消えるセッションCookieの設定です。
// MaxAge を指定しないため Expires は付きません。
func DefaultOptions() sessions.Options {
	return sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // HTTPS で配信する場合のみ true にする
		SameSite: http.SameSiteLaxMode,
	}
}

// Options は新規セッションに適用する Cookie 設定を差し替えます。
func (s *CookieStore) Options(options sessions.Options) {
	s.options = options.ToGorillaOptions()
}

// Get はリクエスト単位でキャッシュされたセッションを返します。
func (s *CookieStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New は Cookie からセッションを復元します。Cookie が無い・署名が不正・レコードが無い場合は新規です。
func (s *CookieStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.codecs...); err != nil {
		return session, nil
	}

	record, err := s.backend.Get(r.Context(), id)
	if err != nil {
		return session, fmt.Errorf("load session: %w", err)
	}
	if record == nil {
		return session, nil
	}

	values, err := decodeValues(record.Data)
	if err != nil {
		return session, nil
	}

	session.ID = id
	session.Values = values
	session.IsNew = false
	return session, nil
}

// Save はセッションを保存して Cookie を書き出します。MaxAge < 0 のときは破棄します。
func (s *CookieStore) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	if session.Options == nil {
		opts := *s.options
		session.Options = &opts
	}

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.Destroy(r.Context(), session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	data, err := encodeValues(session.Values)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.backend.Set(r.Context(), session.ID, &Record{
		Data:    data,
		Expires: s.now().Add(s.ttl),
	}); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("sign session id: %w", err)
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Regenerate は現在のレコードを破棄し、次回保存時に新しいIDを割り当てます。値は保持します。
func (s *CookieStore) Regenerate(r *http.Request, name string) error {
	session, err := s.Get(r, name)
	if err != nil {
		return err
	}
	if session.ID != "" {
		if err := s.backend.Destroy(r.Context(), session.ID); err != nil {
			return err
		}
	}
	session.ID = ""
	session.IsNew = true
	return nil
}

func encodeValues(values map[interface{}]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValues(data []byte) (map[interface{}]interface{}, error) {
	values := make(map[interface{}]interface{})
	if len(data) == 0 {
		return values, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

var _ sessions.Store = (*CookieStore)(nil)
