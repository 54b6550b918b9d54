// Package fixture serves the static pages the browser E2E tests heal against.
//
// Each page models one way a locator breaks or survives:
//
//	/            index with a "Form Authentication" link to /login
//	/login       login form whose submit button only has an aria-label
//	/todo        todo input identified by its placeholder
//	/checkout    button renamed to "Proceed" but keeping its data-testid
//	/delayed     "Submit" button inserted by script after a delay
//	/empty       page without any interactive element
package fixture

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/labstack/echo/v4"
)

// DefaultAppearDelay is how long /delayed waits before inserting its button.
const DefaultAppearDelay = 1500 * time.Millisecond

const layout = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s
</body>
</html>`

const indexBody = `<h1>Available Examples</h1>
<ul>
  <li><a href="/login">Form Authentication</a></li>
  <li><a href="/todo">Todo List</a></li>
</ul>`

const loginBody = `<h2>Login Page</h2>
<form id="login" onsubmit="event.preventDefault(); document.getElementById('flash').textContent = 'You logged into a secure area!';">
  <input type="text" name="username" placeholder="Username">
  <input type="password" name="password" placeholder="Password">
  <button type="submit" aria-label="Login"><i class="icon-signin"></i></button>
</form>
<div id="flash"></div>`

const todoBody = `<h1>todos</h1>
<input class="new-todo" placeholder="What needs to be done?" autofocus
  onkeydown="if (event.key === 'Enter') { var li = document.createElement('li'); li.textContent = this.value; document.getElementById('list').appendChild(li); this.value = ''; }">
<ul id="list"></ul>`

const checkoutBody = `<h1>Cart</h1>
<button data-testid="checkout-button" onclick="document.getElementById('status').textContent = 'ordered'">Proceed</button>
<div id="status"></div>`

const delayedBody = `<h1>Slow form</h1>
<div id="slot"></div>
<script>
setTimeout(function () {
  var b = document.createElement('button');
  b.textContent = 'Submit';
  document.getElementById('slot').appendChild(b);
}, %d);
</script>`

const emptyBody = `<p>Nothing to see here.</p>`

// Server is a running fixture site.
type Server struct {
	// URL is the base URL, without a trailing slash.
	URL string

	srv *httptest.Server
}

// New starts the fixture site on a random local port.
func New() *Server {
	return NewWithDelay(DefaultAppearDelay)
}

// NewWithDelay starts the fixture site with a custom /delayed appear delay.
func NewWithDelay(appearDelay time.Duration) *Server {
	srv := httptest.NewServer(Handler(appearDelay))
	return &Server{URL: srv.URL, srv: srv}
}

// Handler returns the echo instance serving the fixture pages.
func Handler(appearDelay time.Duration) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/", page("The Internet", indexBody))
	e.GET("/login", page("Login", loginBody))
	e.GET("/todo", page("Todo", todoBody))
	e.GET("/checkout", page("Checkout", checkoutBody))
	e.GET("/delayed", page("Delayed", fmt.Sprintf(delayedBody, appearDelay.Milliseconds())))
	e.GET("/empty", page("Empty", emptyBody))

	return e
}

func page(title, body string) echo.HandlerFunc {
	html := fmt.Sprintf(layout, title, body)
	return func(c echo.Context) error {
		return c.HTML(http.StatusOK, html)
	}
}

// Page returns the absolute URL of path.
func (s *Server) Page(path string) string {
	return s.URL + path
}

// Close shuts the site down.
func (s *Server) Close() {
	s.srv.Close()
}
