// Strava-nator converts a Samsung Health export zip into GPX files and
// uploads new activities to Strava.
//
// Usage:
//
//	strava-nator <investigate|manifest|generate|upload> <path to export zip>
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/northcott-j/strava-nator/pkg/bootstrap"
	"github.com/northcott-j/strava-nator/pkg/domain/export"
	"github.com/northcott-j/strava-nator/pkg/domain/manifest"
	"github.com/northcott-j/strava-nator/pkg/infrastructure/archive"
	"github.com/northcott-j/strava-nator/pkg/infrastructure/ledger"
	"github.com/northcott-j/strava-nator/pkg/infrastructure/oauth"
	"github.com/northcott-j/strava-nator/pkg/integrations/strava"
	"github.com/northcott-j/strava-nator/pkg/upload"
)

var supportedMethods = []string{"investigate", "manifest", "generate", "upload"}

func main() {
	args := os.Args[1:]
	if len(args) == 1 && strings.EqualFold(args[0], "help") {
		usage()
		return
	}
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}
	method := strings.ToLower(args[0])
	zipPath := args[1]

	svc, err := bootstrap.NewService("strava-nator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, svc, method, zipPath); err != nil {
		svc.CaptureError(err)
		svc.Logger.Error("Run failed", "method", method, "error", err)
		svc.Close()
		os.Exit(1)
	}
}

func usage() {
	fmt.Printf("Use one of these methods as the first arg: %v\n", supportedMethods)
	fmt.Println("Followed by the path to the zip file of your samsung data")
}

func run(ctx context.Context, svc *bootstrap.Service, method, zipPath string) error {
	supported := false
	for _, m := range supportedMethods {
		if m == method {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%s is not a supported method (%v)", method, supportedMethods)
	}

	dataPath := archive.DataPath(svc.Config.DataDir, zipPath)
	if err := archive.PrepWorkingDir(zipPath, dataPath, svc.Logger); err != nil {
		return err
	}

	switch method {
	case "investigate":
		return export.Investigate(svc, dataPath)
	case "manifest":
		return printManifest(svc, dataPath)
	case "generate":
		return export.GenerateGPXFiles(svc, dataPath)
	case "upload":
		return uploadNew(ctx, svc, dataPath)
	}
	return nil
}

func printManifest(svc *bootstrap.Service, dataPath string) error {
	m, err := manifest.Build(dataPath, false, svc.Logger)
	if err != nil {
		return err
	}
	for _, t := range m.SortedTypes() {
		fmt.Printf("%s: %d exercises\n", t, len(m[t]))
	}
	fmt.Println("NOTE :: Not all of these will have enough GPS points to upload to Strava")
	return nil
}

func uploadNew(ctx context.Context, svc *bootstrap.Service, dataPath string) error {
	gpxFiles, err := archive.GPXFiles(dataPath)
	if err != nil {
		return err
	}
	led, err := ledger.Open(dataPath)
	if err != nil {
		return err
	}

	authorize := func(ctx context.Context) (upload.Service, error) {
		authorizer := oauth.NewAuthorizer(
			svc.Config.StravaClientID, svc.Config.StravaClientSecret,
			svc.Config.OAuthListenAddr, svc.Logger)
		authorizer.Start()
		defer authorizer.Shutdown(ctx)

		fmt.Printf("Please go to %s and follow along in the browser\n", authorizer.LoginURL())
		token, err := authorizer.Wait(ctx)
		if err != nil {
			return nil, err
		}
		client := strava.NewClient(authorizer.Client(ctx, token), svc.Logger)
		return upload.ClientService{Client: client}, nil
	}

	scheduler := upload.NewScheduler(svc, led, authorize, confirmOnStdin)
	return scheduler.Run(ctx, gpxFiles)
}

func confirmOnStdin(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
