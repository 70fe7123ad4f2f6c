package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"
	"github.com/vctt94/bisonbotkit/logging"
	"github.com/vctt94/bisonbotkit/utils"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
	"github.com/Anuoluwapo25/Breevs/client"
	"github.com/Anuoluwapo25/Breevs/simledger"
)

type appMode int

const (
	lobbyMode appMode = iota
	createMode
	gameMode
	statsMode
)

var (
	datadir     = flag.String("datadir", "", "Directory to load config file from")
	flagAddress = flag.String("address", "", "Wallet address to play as")
	flagSeed    = flag.String("seed", "", "Demo ledger seed (replayable sessions)")
)

// wheelFrameInterval paces the spin animation; degreesPerFrame controls how
// long a full spin takes to settle on the target.
const (
	wheelFrameInterval = 50 * time.Millisecond
	degreesPerFrame    = 24.0
)

type wheelTickMsg struct{}

type appstate struct {
	sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	mode appMode
	bc   *client.BreevsClient
	log  slog.Logger

	msgCh    chan tea.Msg
	viewport viewport.Model

	notification string
	err          error

	selectedIndex int
	currentGameID uint64

	// Spin animation state.
	animating bool
	rotation  float64
	target    float64
	spinRes   *breevsgame.SpinResolution

	// Create form state.
	stakeSTX    float64
	durationSec uint64

	stats *breevsgame.UserStats
}

func (m *appstate) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		go func() {
			for msg := range m.bc.UpdatesCh {
				m.msgCh <- msg
			}
		}()
		return nil
	}
}

func (m *appstate) listenForErrors() tea.Cmd {
	return func() tea.Msg {
		go func() {
			for err := range m.bc.ErrorsCh {
				m.msgCh <- fmt.Sprintf("Error: %v", err)
			}
		}()
		return nil
	}
}

func (m *appstate) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.msgCh:
			return msg
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

func (m *appstate) Init() tea.Cmd {
	m.viewport = viewport.New(0, 0)
	return tea.Batch(
		m.listenForUpdates(),
		m.listenForErrors(),
		m.waitForMsg(),
		tea.EnterAltScreen,
	)
}

func (m *appstate) sortedLobby() []*breevsgame.GameSnapshot {
	games := m.bc.Store().ActiveGames()
	sort.Slice(games, func(i, j int) bool { return games[i].GameID > games[j].GameID })
	return games
}

func (m *appstate) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Lock()
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height
		m.Unlock()
		return m, nil

	case client.UpdatedMsg:
		return m, m.waitForMsg()

	case client.SpinResultMsg:
		m.Lock()
		m.animating = true
		m.rotation = 0
		m.target = msg.Resolution.FinalRotation
		m.spinRes = msg.Resolution
		m.Unlock()
		return m, tea.Batch(m.wheelTick(), m.waitForMsg())

	case client.GameEndedMsg:
		m.Lock()
		if msg.Winner == m.bc.Address {
			m.notification = fmt.Sprintf("Game %d ended: you won! Press p to claim the prize.", msg.GameID)
		} else {
			m.notification = fmt.Sprintf("Game %d ended, winner %s", msg.GameID, short(msg.Winner))
		}
		m.Unlock()
		return m, m.waitForMsg()

	case wheelTickMsg:
		m.Lock()
		if !m.animating {
			m.Unlock()
			return m, nil
		}
		m.rotation += degreesPerFrame
		if m.rotation >= m.target {
			m.rotation = m.target
			m.animating = false
			m.Unlock()
			return m, m.finishSpin()
		}
		m.Unlock()
		return m, m.wheelTick()

	case string:
		m.Lock()
		m.notification = msg
		m.Unlock()
		return m, m.waitForMsg()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *appstate) wheelTick() tea.Cmd {
	return tea.Tick(wheelFrameInterval, func(time.Time) tea.Msg { return wheelTickMsg{} })
}

func (m *appstate) finishSpin() tea.Cmd {
	return func() tea.Msg {
		winner, ended, err := m.bc.FinishSpin(m.currentGameID)
		m.Lock()
		defer m.Unlock()
		if err != nil {
			m.err = err
			return client.UpdatedMsg{}
		}
		if ended {
			m.notification = fmt.Sprintf("Winner: %s", short(winner))
		} else if m.spinRes != nil {
			m.notification = fmt.Sprintf("%s is out. Wait for the round window, then advance.", short(m.spinRes.Eliminated))
		}
		return client.UpdatedMsg{}
	}
}

func (m *appstate) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	switch m.mode {
	case lobbyMode:
		return m.handleLobbyKey(key)
	case createMode:
		return m.handleCreateKey(key)
	case gameMode:
		return m.handleGameKey(key)
	case statsMode:
		if key == "esc" || key == "q" {
			m.mode = lobbyMode
		}
		return m, nil
	}
	return m, nil
}

func (m *appstate) handleLobbyKey(key string) (tea.Model, tea.Cmd) {
	games := m.sortedLobby()
	switch key {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "j", "down":
		if m.selectedIndex < len(games)-1 {
			m.selectedIndex++
		}
	case "k", "up":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "c":
		m.mode = createMode
		m.stakeSTX = 1.0
		m.durationSec = 60
	case "u":
		return m, m.loadStats()
	case "g":
		// Jump to the current engagement, if any.
		if g := m.bc.Store().CurrentActiveGame(m.bc.Address); g != nil {
			m.enterGame(g.GameID)
		} else {
			m.notification = "You are not in a game"
		}
	case "enter":
		if m.selectedIndex >= len(games) {
			break
		}
		g := games[m.selectedIndex]
		if g.IsParticipant(m.bc.Address) {
			m.enterGame(g.GameID)
			break
		}
		return m, m.joinGame(g.GameID)
	}
	return m, nil
}

func (m *appstate) handleCreateKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.mode = lobbyMode
	case "+", "=":
		if m.stakeSTX < 100 {
			m.stakeSTX += 0.5
		}
	case "-":
		if m.stakeSTX > 0.5 {
			m.stakeSTX -= 0.5
		}
	case "]":
		m.durationSec += 30
	case "[":
		if m.durationSec > 30 {
			m.durationSec -= 30
		}
	case "enter":
		stake := uint64(m.stakeSTX * 1e6)
		duration := m.durationSec
		return m, func() tea.Msg {
			snap, err := m.bc.CreateGame(m.ctx, stake, duration)
			m.Lock()
			defer m.Unlock()
			if err != nil {
				m.err = err
				m.mode = lobbyMode
				return client.UpdatedMsg{}
			}
			m.err = nil
			m.notification = fmt.Sprintf("Created game %d, waiting for players", snap.GameID)
			m.enterGameLocked(snap.GameID)
			return client.UpdatedMsg{}
		}
	}
	return m, nil
}

func (m *appstate) handleGameKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.mode = lobbyMode
	case "s":
		return m, m.runAction("start", func() error {
			return m.bc.StartGame(m.ctx, m.currentGameID)
		})
	case " ":
		if m.animating {
			break
		}
		return m, func() tea.Msg {
			_, err := m.bc.Spin(m.ctx, m.currentGameID)
			if err != nil {
				m.Lock()
				m.err = err
				m.Unlock()
				return client.UpdatedMsg{}
			}
			m.Lock()
			m.err = nil
			m.Unlock()
			// Animation starts when SpinResultMsg arrives.
			return nil
		}
	case "a":
		return m, m.runAction("advance", func() error {
			return m.bc.AdvanceRound(m.ctx, m.currentGameID)
		})
	case "p":
		return m, m.runAction("claim", func() error {
			if err := m.bc.ClaimPrize(m.ctx, m.currentGameID); err != nil {
				return err
			}
			m.Lock()
			m.notification = "Prize claimed!"
			m.Unlock()
			return nil
		})
	}
	return m, nil
}

func (m *appstate) runAction(name string, f func() error) tea.Cmd {
	return func() tea.Msg {
		err := f()
		m.Lock()
		defer m.Unlock()
		if err != nil {
			m.err = err
		} else {
			m.err = nil
		}
		return client.UpdatedMsg{}
	}
}

func (m *appstate) joinGame(gameID uint64) tea.Cmd {
	return func() tea.Msg {
		_, err := m.bc.JoinGame(m.ctx, gameID)
		m.Lock()
		defer m.Unlock()
		if err != nil {
			var age *client.ActiveGameError
			if errors.As(err, &age) {
				// Redirect to the existing engagement instead of refusing.
				m.notification = fmt.Sprintf("You are already in game %d", age.GameID)
				m.enterGameLocked(age.GameID)
				m.err = nil
				return client.UpdatedMsg{}
			}
			m.err = err
			return client.UpdatedMsg{}
		}
		m.err = nil
		m.notification = fmt.Sprintf("Joined game %d", gameID)
		m.enterGameLocked(gameID)
		return client.UpdatedMsg{}
	}
}

func (m *appstate) loadStats() tea.Cmd {
	return func() tea.Msg {
		st, err := m.bc.UserStats(m.ctx)
		m.Lock()
		defer m.Unlock()
		if err != nil {
			m.err = err
			return client.UpdatedMsg{}
		}
		m.stats = st
		m.mode = statsMode
		return client.UpdatedMsg{}
	}
}

func (m *appstate) enterGame(gameID uint64) {
	m.Lock()
	m.enterGameLocked(gameID)
	m.Unlock()
}

func (m *appstate) enterGameLocked(gameID uint64) {
	m.currentGameID = gameID
	m.mode = gameMode
	m.bc.WatchGame(m.ctx, gameID)
}

func short(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}

func realMain() error {
	flag.Parse()
	if *datadir == "" {
		*datadir = utils.AppDataDir("breevscli", false)
	}

	appCfg, err := client.LoadAppConfig(*datadir, client.ConfigOverrides{
		Address: *flagAddress,
		SimSeed: *flagSeed,
	})
	if err != nil {
		fmt.Println("Error loading configuration:", err)
		os.Exit(1)
	}
	address := appCfg.Address
	if address == "" {
		address = "ST1PLAYER000000000000000000000000000000"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	useStdout := false
	lb, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:        filepath.Join(*datadir, "logs", "breevscli.log"),
		DebugLevel:     appCfg.BR.Debug,
		MaxLogFiles:    10,
		MaxBufferLines: 1000,
		UseStdout:      &useStdout,
	})
	if err != nil {
		return err
	}
	log := lb.Logger("BRVS")

	seed := appCfg.SimSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	ledger := simledger.NewLedger(lb.Logger("SLDG"), seed)

	as := &appstate{
		cancel: cancel,
		log:    log,
		mode:   lobbyMode,
		msgCh:  make(chan tea.Msg, 16),
	}
	as.ctx = ctx

	ntfns := client.NewNotificationManager()
	ntfns.RegisterSync(client.OnPlayerJoinedNtfn(func(game *breevsgame.GameSnapshot, addr string) {
		if addr != address {
			as.Lock()
			as.notification = fmt.Sprintf("%s joined game %d (%d/%d)",
				short(addr), game.GameID, len(game.Players), breevsgame.MaxPlayers)
			as.Unlock()
		}
	}))
	ntfns.RegisterSync(client.OnGameStartedNtfn(func(game *breevsgame.GameSnapshot) {
		as.Lock()
		as.notification = fmt.Sprintf("Game %d started", game.GameID)
		as.Unlock()
	}))
	ntfns.RegisterSync(client.OnPrizeClaimedNtfn(func(gameID uint64, winner string, amount uint64) {
		log.Infof("prize of %d claimed on game %d by %s", amount, gameID, winner)
	}))

	bc, err := client.NewBreevsClient(address, &client.BreevsClientCfg{
		AppCfg:        appCfg,
		Log:           log,
		Gateway:       ledger.Wallet(address),
		Notifications: ntfns,
		Storage:       client.NewFileStorage(*datadir),
		Clock:         ledger.Height,
	})
	if err != nil {
		return fmt.Errorf("failed to create breevs client: %v", err)
	}
	as.bc = bc

	if err := bc.RestoreSession(); err != nil {
		log.Warnf("session restore: %v", err)
	}

	g.Go(func() error { return bc.Run(gctx) })
	g.Go(func() error { return runDemoBots(gctx, ledger, address, lb.Logger("BOTS")) })

	bc.WatchLists(ctx)

	log.Infof("playing as %s (seed %d)", address, seed)

	defer func() {
		if err := bc.SaveSession(); err != nil {
			log.Warnf("session save: %v", err)
		}
	}()

	p := tea.NewProgram(as)
	if _, err = p.Run(); err != nil {
		return err
	}
	cancel()
	g.Wait()
	return nil
}

func main() {
	if err := realMain(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// View renders the current mode.
func (m *appstate) View() string {
	m.Lock()
	defer m.Unlock()

	var b strings.Builder
	b.WriteString("Breevs - Wheel of Elimination\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	switch m.mode {
	case lobbyMode:
		m.viewLobby(&b)
	case createMode:
		m.viewCreate(&b)
	case gameMode:
		m.viewGame(&b)
	case statsMode:
		m.viewStats(&b)
	}

	if m.notification != "" {
		b.WriteString("\n" + m.notification + "\n")
	}
	if m.err != nil {
		b.WriteString(fmt.Sprintf("\n! %v\n", m.err))
	}
	return b.String()
}

func (m *appstate) viewLobby(b *strings.Builder) {
	games := m.sortedLobby()
	b.WriteString("Open games:\n\n")
	if len(games) == 0 {
		b.WriteString("  (none yet - press c to create one)\n")
	}
	for i, g := range games {
		cursor := "  "
		if i == m.selectedIndex {
			cursor = "> "
		}
		tag := ""
		if g.IsParticipant(m.bc.Address) {
			tag = " [you]"
		}
		b.WriteString(fmt.Sprintf("%sGame %d  %s  stake %.1f STX  players %d/%d  pool %.1f STX%s\n",
			cursor, g.GameID, g.Status, float64(g.Stake)/1e6,
			len(g.Players), breevsgame.MaxPlayers, float64(g.PrizePool)/1e6, tag))
	}
	b.WriteString("\n[enter] join/open  [c] create  [g] my game  [u] stats  [q] quit\n")
}

func (m *appstate) viewCreate(b *strings.Builder) {
	b.WriteString("Create game\n\n")
	b.WriteString(fmt.Sprintf("  Stake:    %.1f STX   (+/- to adjust)\n", m.stakeSTX))
	b.WriteString(fmt.Sprintf("  Round:    %ds        ([/] to adjust)\n", m.durationSec))
	b.WriteString("\n[enter] create  [esc] back\n")
}

func (m *appstate) viewGame(b *strings.Builder) {
	g := m.bc.Store().Game(m.currentGameID)
	if g == nil {
		b.WriteString("Game not tracked yet...\n")
		return
	}
	e := m.bc.Engine(m.currentGameID)

	b.WriteString(fmt.Sprintf("Game %d  [%s]  pool %.1f STX\n", g.GameID, g.Status, float64(g.PrizePool)/1e6))
	if g.Status == breevsgame.StatusInProgress {
		b.WriteString(fmt.Sprintf("Round %d of %d\n", g.CurrentRound, g.TotalRounds))
	}
	b.WriteString("\n")

	if e != nil {
		for _, v := range e.ParticipantViews() {
			mark := "o"
			if v.Status == breevsgame.Eliminated {
				mark = "x"
			}
			you := ""
			if v.Address == m.bc.Address {
				you = " (you)"
			}
			b.WriteString(fmt.Sprintf("  %s %-10s %s%s\n", mark, v.DisplayName, short(v.Address), you))
		}
		b.WriteString("\n")
		if m.animating {
			b.WriteString(fmt.Sprintf("  Spinning... %.0f deg\n", m.rotation))
		} else if g.Status == breevsgame.StatusEnded {
			b.WriteString(fmt.Sprintf("  Winner: %s\n", short(g.Winner)))
		}
	}

	isHost := g.Creator == m.bc.Address
	b.WriteString("\n")
	if isHost {
		b.WriteString("[s] start  [space] spin  [a] advance round  ")
	}
	b.WriteString("[p] claim prize  [esc] lobby\n")
}

func (m *appstate) viewStats(b *strings.Builder) {
	b.WriteString("Your stats\n\n")
	if m.stats != nil {
		b.WriteString(fmt.Sprintf("  Games played:   %d\n", m.stats.GamesPlayed))
		b.WriteString(fmt.Sprintf("  Games won:      %d\n", m.stats.GamesWon))
		b.WriteString(fmt.Sprintf("  Total staked:   %.1f STX\n", float64(m.stats.TotalStaked)/1e6))
		b.WriteString(fmt.Sprintf("  Total winnings: %.1f STX\n", float64(m.stats.TotalWinnings)/1e6))
	}
	b.WriteString("\n[esc] back\n")
}
