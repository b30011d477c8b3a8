package access

import "sync"

// Captcha holds the current challenge response. Listeners are scoped to the
// owning gate rather than installed globally.
type Captcha struct {
	mu        sync.Mutex
	token     string
	nextID    int
	listeners map[int]func(token string)
}

func NewCaptcha() *Captcha {
	return &Captcha{listeners: map[int]func(string){}}
}

// Solve stores a fresh challenge response.
func (c *Captcha) Solve(token string) {
	c.set(token)
}

// Expire clears the response, blocking submission until solved again.
func (c *Captcha) Expire() {
	c.set("")
}

func (c *Captcha) set(token string) {
	c.mu.Lock()
	c.token = token
	listeners := make([]func(string), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(token)
	}
}

func (c *Captcha) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Captcha) Solved() bool {
	return c.Token() != ""
}

// Subscribe registers fn to run on every solve or expiry. The returned
// function removes it.
func (c *Captcha) Subscribe(fn func(token string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}
