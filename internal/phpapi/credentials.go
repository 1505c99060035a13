package phpapi

import "net/http"

// Cookie is a name/value pair forwarded to the PHP API on every call.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Credentials are one user's upstream credentials: the session token the
// sign-in endpoint returns and the cookies the PHP session relies on.
type Credentials struct {
	SessionToken string   `json:"session_token,omitempty"`
	Cookies      []Cookie `json:"cookies,omitempty"`
}

// Empty reports whether there is nothing to forward.
func (c Credentials) Empty() bool {
	return c.SessionToken == "" && len(c.Cookies) == 0
}

// merge folds cookies set by a response into the credentials, replacing
// values of cookies with the same name.
func (c *Credentials) merge(set []*http.Cookie) {
	for _, hc := range set {
		if hc.Name == "" {
			continue
		}
		replaced := false
		for i := range c.Cookies {
			if c.Cookies[i].Name == hc.Name {
				c.Cookies[i].Value = hc.Value
				replaced = true
				break
			}
		}
		if !replaced {
			c.Cookies = append(c.Cookies, Cookie{Name: hc.Name, Value: hc.Value})
		}
	}
}

func (c Credentials) apply(req *http.Request) {
	for _, ck := range c.Cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	if c.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.SessionToken)
		req.Header.Set("X-Session-Token", c.SessionToken)
	}
}
