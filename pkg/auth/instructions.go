package auth

import (
	"fmt"
	"io"
)

// WriteCookieGuide explains how to copy the session cookies from a browser
func WriteCookieGuide(w io.Writer) {
	fmt.Fprint(w, `To read following lists the crawler needs the session cookies of a
logged-in Instagram account:

  1. Log in at https://www.instagram.com in a browser.
  2. Open the developer tools (F12) and go to Application > Cookies
     (Storage > Cookies in Firefox).
  3. Select https://www.instagram.com and copy the values of:
       sessionid   long string containing %3A
       csrftoken   32 characters

The cookies grant full access to the account. Use a secondary account and
keep them private; iggraph stores them in the system keyring or an
encrypted file.
`)
}
