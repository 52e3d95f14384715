package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/jaminalder/codex-reversi/internal/domain"
)

type templates struct {
	base    *template.Template
	game    *template.Template
	board   *template.Template
	index   *template.Template
	waiting *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"cellSymbol": func(c domain.CellState) string {
			switch c {
			case domain.Player1Disk:
				return "●"
			case domain.Player2Disk:
				return "○"
			default:
				return ""
			}
		},
		"playerName": func(p domain.Player) string {
			switch p {
			case domain.Player1:
				return "Player 1"
			case domain.Player2:
				return "Player 2"
			default:
				return "Nobody"
			}
		},
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.row{display:flex}.row form{margin:0}
.cell{display:inline-block;width:2em;height:2em;border:1px solid #333;background:#2e7d32;color:#000;text-align:center;line-height:2em;font-size:1.2em}
.cell.valid{background:#66bb6a;cursor:pointer}
</style>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Reversi</h1>
<form action="/game" method="post">
  <label>Size <select name="size">{{range .Sizes}}<option value="{{.}}"{{if eq . $.DefaultSize}} selected{{end}}>{{.}}x{{.}}</option>{{end}}</select></label>
  <label>Rules <select name="rules">{{range .Rules}}<option value="{{.}}">{{.}}</option>{{end}}</select></label>
  <label>First move <select name="first"><option value="1">Player 1</option><option value="2">Player 2</option></select></label>
  <label><input type="checkbox" name="save"> Save</label>
  <button>Create</button>
</form>
<form action="/resume" method="post"><button>Resume last saved game</button></form>
{{if .Matchmaking}}
<form action="/match" method="post">
  <input type="hidden" name="size" value="{{.DefaultSize}}">
  <input type="hidden" name="rules" value="{{.DefaultRules}}">
  <button>Find an opponent</button>
</form>
{{end}}`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<p>You are {{playerName .Seat}}</p>
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board" hx-sse="swap:board">{{template "board" .Board}}</div>
</div>`))
	waiting := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div id="match" hx-get="/match" hx-trigger="every 2s" hx-swap="outerHTML">
  <p>Waiting for an opponent ({{.Size}}x{{.Size}}, {{.Rules}})...</p>
  <form action="/match/cancel" method="post"><button>Cancel</button></form>
</div>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index, waiting: waiting}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const boardTemplate = `<div id="board">
  {{if .Error}}<div class="alert">{{.Error}}</div>{{end}}
  <div class="score">{{playerName 1}} {{index .Score 0}} - {{index .Score 1}} {{playerName 2}}</div>
  {{if .Over}}
  <div class="result">Game over ({{.Status}}). Winner: {{playerName .Winner}}</div>
  {{else}}
  <div class="turn">{{playerName .Turn}} to move</div>
  {{end}}
  {{range $r, $row := .Board}}
  <div class="row">
    {{range $c, $cell := $row}}
      {{if and (not $.Over) (index $.Valid $r $c)}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{$r}}">
        <input type="hidden" name="c" value="{{$c}}">
        <button type="submit" class="cell valid"></button>
      </form>
      {{else}}
      <span class="cell">{{cellSymbol $cell}}</span>
      {{end}}
    {{end}}
  </div>
  {{end}}
  {{if not .Over}}
  <form hx-post="/game/{{.ID}}/forfeit" hx-target="#board" hx-swap="outerHTML" method="post">
    <button type="submit">Forfeit</button>
  </form>
  {{end}}
</div>
`

// boardView is the data behind the board fragment.
type boardView struct {
	ID     string
	Board  [][]domain.CellState
	Valid  [][]bool
	Turn   domain.Player
	Score  [2]int
	Over   bool
	Status domain.EndReason
	Winner domain.Player
	Error  string
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
		return c.Value
	}
	// Generate UUIDv4 for player ID
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
	return v
}
