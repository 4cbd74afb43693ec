package banner

import (
	"fmt"

	"github.com/rawkintrevo/agent-lab-ui/pkg/config"
)

const banner = `
 █████╗  ██████╗ ███████╗███╗   ██╗████████╗    ██╗      █████╗ ██████╗
██╔══██╗██╔════╝ ██╔════╝████╗  ██║╚══██╔══╝    ██║     ██╔══██╗██╔══██╗
███████║██║  ███╗█████╗  ██╔██╗ ██║   ██║       ██║     ███████║██████╔╝
██╔══██║██║   ██║██╔══╝  ██║╚██╗██║   ██║       ██║     ██╔══██║██╔══██╗
██║  ██║╚██████╔╝███████╗██║ ╚████║   ██║       ███████╗██║  ██║██████╔╝
╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═══╝   ╚═╝       ╚══════╝╚═╝  ╚═╝╚═════╝
`

// Print prints the startup banner using the effective config.
func Print(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)
	if eff.Config != nil && eff.Config.Ingest.Address != "" {
		fmt.Printf("Ingest:   %s\n", eff.Config.Ingest.Address)
	}

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/chats' -d '{\"title\": \"hello\"}'")
	fmt.Println("curl 'http://<host>:<port>/v1/chats?project=p1'")
	fmt.Println("websocket: ws://<host>:<port>/v1/chats/<id>/ws")

	if eff.Config != nil {
		be := len(eff.Config.Security.APIKeys.Backend)
		fe := len(eff.Config.Security.APIKeys.Frontend)
		ad := len(eff.Config.Security.APIKeys.Admin)
		if be+fe+ad == 0 {
			fmt.Println("\n== Production? =================================================")
			fmt.Println("No API keys configured; add security.api_keys before exposing this")
		}
	}
}
