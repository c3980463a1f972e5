package main

import (
	"encoding/json"
	"fmt"

	"github.com/AdguardTeam/advtblock"
	"github.com/AdguardTeam/advtblock/metrics"
	"github.com/AdguardTeam/advtblock/rules"
	goFlags "github.com/jessevdk/go-flags"
)

// addCommands adds the subcommands to parser.
func addCommands(parser *goFlags.Parser, env *environment) (err error) {
	cmds := []struct {
		data  any
		name  string
		short string
		long  string
	}{{
		data:  &checkCommand{env: env},
		name:  "check",
		short: "Check a request",
		long:  "Checks if the request must be blocked and prints the rule that defined the result.",
	}, {
		data:  &cosmeticCommand{env: env},
		name:  "cosmetic",
		short: "Print cosmetic resources",
		long:  "Prints the cosmetic resources of the page as JSON or as a stylesheet.",
	}, {
		data:  &proxyCommand{env: env},
		name:  "proxy",
		short: "Run the filtering proxy",
		long:  "Runs the filtering MITM proxy configured in the proxy section of the configuration file.",
	}}

	for _, c := range cmds {
		_, err = parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			return fmt.Errorf("adding command %q: %w", c.name, err)
		}
	}

	return nil
}

// checkCommand is the command that checks a single request.
type checkCommand struct {
	env *environment

	// URL is the URL of the request.
	URL string `long:"url" description:"Request URL." required:"true"`

	// SourceURL is the URL of the page that made the request.
	SourceURL string `long:"source-url" description:"URL of the page that made the request."`

	// Type is the resource type of the request.
	Type string `long:"type" description:"Resource type, for example image or script." default:"other"`
}

// type check
var _ goFlags.Commander = (*checkCommand)(nil)

// Execute implements the [goFlags.Commander] interface for *checkCommand.
func (c *checkCommand) Execute(_ []string) (err error) {
	err = c.env.setup()
	if err != nil {
		return err
	}

	reg, h, err := c.env.newInstance(metrics.Empty{})
	if err != nil {
		return err
	}
	defer reg.Close()

	req := rules.NewRequest(c.URL, c.SourceURL, rules.ParseRequestType(c.Type))
	rule, blocked, err := reg.MatchRequest(h, req)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.env.stdout, "blocked: %t\n", blocked)
	if err == nil && rule != nil {
		_, err = fmt.Fprintf(c.env.stdout, "rule: %s\n", rule.Text())
	}

	return err
}

// cosmeticCommand is the command that prints the cosmetic resources of a page.
type cosmeticCommand struct {
	env *environment

	// URL is the URL of the page.
	URL string `long:"url" description:"Page URL." required:"true"`

	// Stylesheet defines whether the hiding stylesheet is printed instead of
	// JSON.
	Stylesheet bool `long:"stylesheet" description:"Print the element hiding stylesheet instead of JSON."`
}

// type check
var _ goFlags.Commander = (*cosmeticCommand)(nil)

// Execute implements the [goFlags.Commander] interface for *cosmeticCommand.
func (c *cosmeticCommand) Execute(_ []string) (err error) {
	err = c.env.setup()
	if err != nil {
		return err
	}

	reg, h, err := c.env.newInstance(metrics.Empty{})
	if err != nil {
		return err
	}
	defer reg.Close()

	res, err := reg.CosmeticResources(h, c.URL)
	if err != nil {
		return err
	}

	if c.Stylesheet {
		_, err = fmt.Fprint(c.env.stdout, advtblock.SelectorsToStylesheet(res))

		return err
	}

	enc := json.NewEncoder(c.env.stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(res)
}
