package popup

import (
	"encoding/json"
	"html/template"
	"io"
)

// relayTemplate is the page served to the popup window after the provider
// redirect. Its script posts the auth message to the opener and closes the
// popup; without an opener it falls back to a full-page redirect.
var relayTemplate = template.Must(template.New("relay").Parse(`<!DOCTYPE html>
<html>
<head><title>Spotify Authentication</title></head>
<body>
<p>{{if .IsError}}Authentication failed.{{else}}Authentication successful! Connecting to your account...{{end}}</p>
<script>
  var message = {{.MessageJSON}};
  if (window.opener) {
    window.opener.postMessage(message, {{.TargetOrigin}});
    setTimeout(function () { window.close(); }, 2000);
  } else {
    window.location.href = {{.FallbackURL}};
  }
</script>
</body>
</html>
`))

type relayData struct {
	IsError      bool
	MessageJSON  template.JS
	TargetOrigin string
	FallbackURL  string
}

// WriteRelayPage renders the relay page for msg. targetOrigin restricts which
// opener origin may receive the message; fallbackURL is used when the page
// was not opened as a popup.
func WriteRelayPage(w io.Writer, msg Message, targetOrigin, fallbackURL string) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return relayTemplate.Execute(w, relayData{
		IsError:      msg.Type == TypeAuthError,
		MessageJSON:  template.JS(payload),
		TargetOrigin: targetOrigin,
		FallbackURL:  fallbackURL,
	})
}
