package team

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/agent"
	"github.com/jeanpaul/adcrew/internal/provider"
	"github.com/jeanpaul/adcrew/internal/tools"
	"github.com/jeanpaul/adcrew/internal/types"
)

// Fixed roster members every team gets besides the caller's roles.
const (
	ExecutorName = "executor"
	ClientName   = "client"
)

const (
	DefaultMaxDepth = 2
	defaultMaxRound = 20
)

// CreateParams is the input for a new team.
type CreateParams struct {
	// Prefix, UserID and ConvID form the registry name. Name overrides them.
	Prefix         string
	UserID         string
	ConvID         string
	Name           string
	Task           string
	Roles          []types.TeamRole
	MaxRound       int
	Seed           *int
	Temperature    float64
	HumanInputMode types.HumanInputMode
	WorkDir        string
	// Tools are registered on top of the factory toolset.
	Tools []tools.Tool

	depth int
}

// Defaults fill zero-valued CreateParams fields.
type Defaults struct {
	MaxRound       int
	Seed           *int
	Temperature    float64
	HumanInputMode types.HumanInputMode
	WorkDir        string
}

// Toolset returns the domain tools of a team.
type Toolset func(name string) []tools.Tool

// Factory creates teams, registers them and spawns child teams. It
// implements types.TeamSpawner.
type Factory struct {
	prov     provider.Provider
	store    Store
	toolset  Toolset
	currency tools.CurrencyLookup
	human    agent.HumanInput
	defaults Defaults
	maxDepth int
	log      *zap.Logger

	mu       sync.Mutex
	children map[string]int
	// parents maps every live spawned child to the team that created it.
	parents  map[string]string
}

type FactoryOption func(*Factory)

func WithToolset(ts Toolset) FactoryOption { return func(f *Factory) { f.toolset = ts } }

func WithCurrencyLookup(l tools.CurrencyLookup) FactoryOption {
	return func(f *Factory) { f.currency = l }
}

func WithHumanInput(h agent.HumanInput) FactoryOption { return func(f *Factory) { f.human = h } }

func WithDefaults(d Defaults) FactoryOption { return func(f *Factory) { f.defaults = d } }

func WithMaxDepth(n int) FactoryOption { return func(f *Factory) { f.maxDepth = n } }

func WithLogger(l *zap.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

func NewFactory(prov provider.Provider, store Store, opts ...FactoryOption) *Factory {
	f := &Factory{
		prov:     prov,
		store:    store,
		maxDepth: DefaultMaxDepth,
		log:      zap.NewNop(),
		children: make(map[string]int),
		parents:  make(map[string]string),
		defaults: Defaults{MaxRound: defaultMaxRound, HumanInputMode: types.HumanInputNever},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Factory) Store() Store { return f.store }

// Create builds a team from params and registers it. The name must be free.
func (f *Factory) Create(ctx context.Context, params CreateParams) (*Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := f.withDefaults(params)
	if err := validate(p); err != nil {
		return nil, err
	}

	t, err := f.build(p)
	if err != nil {
		return nil, err
	}
	if err := f.store.Store(t.name, t); err != nil {
		return nil, err
	}
	f.log.Info("team created",
		zap.String("team", t.name),
		zap.Int("agents", len(t.roster)),
		zap.Int("tools", t.tools.Len()),
		zap.Int("max_round", p.MaxRound),
		zap.Int("depth", p.depth))
	return t, nil
}

func (f *Factory) withDefaults(p CreateParams) CreateParams {
	if p.Name == "" {
		p.Name = Name(p.Prefix, p.UserID, p.ConvID)
	}
	if p.MaxRound == 0 {
		p.MaxRound = f.defaults.MaxRound
	}
	if p.MaxRound == 0 {
		p.MaxRound = defaultMaxRound
	}
	if p.Seed == nil {
		p.Seed = f.defaults.Seed
	}
	if p.Temperature == 0 {
		p.Temperature = f.defaults.Temperature
	}
	if p.HumanInputMode == "" {
		p.HumanInputMode = f.defaults.HumanInputMode
	}
	if p.HumanInputMode == "" {
		p.HumanInputMode = types.HumanInputNever
	}
	if p.WorkDir == "" {
		p.WorkDir = f.defaults.WorkDir
	}
	return p
}

var roleNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

func validate(p CreateParams) error {
	var errs []error
	if strings.TrimSpace(p.Task) == "" {
		errs = append(errs, errors.New("task is empty"))
	}
	if len(p.Roles) == 0 {
		errs = append(errs, errors.New("at least one role is required"))
	}
	if p.MaxRound <= 0 {
		errs = append(errs, fmt.Errorf("max_round must be positive, got %d", p.MaxRound))
	}
	if !p.HumanInputMode.Valid() {
		errs = append(errs, fmt.Errorf("invalid human_input_mode %q", p.HumanInputMode))
	}
	seen := map[string]bool{ExecutorName: true, ClientName: true}
	for _, r := range p.Roles {
		name := roleName(r.Name)
		if !roleNamePattern.MatchString(name) {
			errs = append(errs, fmt.Errorf("invalid role name %q", r.Name))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("role name %q is reserved or duplicated", r.Name))
		}
		seen[name] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("team: invalid parameters for %s: %w", p.Name, errors.Join(errs...))
	}
	return nil
}

func roleName(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}

func (f *Factory) build(p CreateParams) (*Team, error) {
	log := f.log.With(zap.String("team", p.Name))
	reg := tools.NewRegistry(tools.WithLogger(log), tools.WithCurrencyLookup(f.currency), tools.WithApprovers(ClientName))

	var set []tools.Tool
	set = append(set, tools.NewReplyToClientTool())
	if p.depth < f.maxDepth {
		set = append(set, tools.NewCreateTeamTool(f, p.Name), tools.NewAnswerTeamTool(f, p.Name))
	}
	if f.toolset != nil {
		set = append(set, f.toolset(p.Name)...)
	}
	set = append(set, p.Tools...)
	for _, tool := range set {
		if err := reg.Register(tool); err != nil {
			return nil, fmt.Errorf("team %s: %w", p.Name, err)
		}
	}

	roster := []types.AgentSpec{
		{Name: ExecutorName, Capabilities: []types.Capability{types.CapExecuteFunctions}},
		{Name: ClientName, Capabilities: []types.Capability{types.CapHumanProxy}},
	}
	sampling := agent.Sampling{Seed: p.Seed, Temperature: p.Temperature}
	var speakers []agent.Speaker
	for _, r := range p.Roles {
		spec := types.AgentSpec{
			Name:         roleName(r.Name),
			SystemPrompt: systemPrompt(r, p.Roles),
			Capabilities: []types.Capability{types.CapSpeak},
		}
		roster = append(roster, spec)
		speakers = append(speakers, agent.New(spec, f.prov, reg.ToolDefs, sampling, log))
	}

	chat, err := agent.NewGroupChat(agent.GroupChatConfig{
		Speakers: speakers,
		Roster:   roster,
		Tools:    reg,
		MaxRound: p.MaxRound,
		Mode:     p.HumanInputMode,
		Human:    f.human,
		Log:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("team %s: %w", p.Name, err)
	}

	return &Team{
		name:    p.Name,
		task:    p.Task,
		roster:  roster,
		tools:   reg,
		chat:    chat,
		conv:    agent.NewConversation(),
		workDir: p.WorkDir,
		depth:   p.depth,
		log:     log,
	}, nil
}

func systemPrompt(role types.TeamRole, all []types.TeamRole) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a member of a team managing a client's advertising account.\n", roleName(role.Name))
	fmt.Fprintf(&sb, "Your role: %s\n\n", role.Description)
	if len(all) > 1 {
		sb.WriteString("Your teammates:\n")
		for _, r := range all {
			if r.Name == role.Name {
				continue
			}
			fmt.Fprintf(&sb, "- %s: %s\n", roleName(r.Name), r.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Rules:\n")
	sb.WriteString("- Never modify the account before the client explicitly approved the exact change.\n")
	fmt.Fprintf(&sb, "- To ask the client something, end your message with %s.\n", types.MarkerPause)
	fmt.Fprintf(&sb, "- When the task is fully done, end your message with %s.\n", types.MarkerTerminate)
	return sb.String()
}
