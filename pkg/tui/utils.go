package tui

import (
	"fmt"
	"math/big"
	"os/exec"
	"runtime"
	"strings"

	"acctview/pkg/utils"
)

func (m model) displayAmount(v *big.Int) string {
	if m.privacyMode && v != nil {
		return "****"
	}
	return utils.FormatAmount(v, m.chain.Decimals, m.config.DisplayDecimals, m.chain.Symbol)
}

func (m model) maskAddress(addr string) string {
	if m.privacyMode {
		return "****...****"
	}
	return utils.ShortAddress(addr)
}

// explorerURL links an account on the chain explorer, empty when none is configured.
func (m model) explorerURL(addr string) string {
	if m.chain.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/account/%s", strings.TrimRight(m.chain.ExplorerURL, "/"), addr)
}

// browserCommand returns the platform command that opens url.
func browserCommand(url string) *exec.Cmd {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("cmd", "/c", "start", url)
	case "darwin":
		return exec.Command("open", url)
	}
	return exec.Command("xdg-open", url)
}

var openBrowser = func(url string) error {
	return browserCommand(url).Start()
}
