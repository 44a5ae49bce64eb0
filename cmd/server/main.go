package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/linguist-ai/linguist-bridge/internal/bridge"
	"github.com/linguist-ai/linguist-bridge/internal/eventlog"
	"github.com/linguist-ai/linguist-bridge/internal/langdir"
	"github.com/linguist-ai/linguist-bridge/internal/session"
	"github.com/linguist-ai/linguist-bridge/internal/synth"
	"github.com/linguist-ai/linguist-bridge/internal/transcriber"
	"github.com/linguist-ai/linguist-bridge/internal/translate"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	APIKey string `yaml:"api_key"`
	Bot    struct {
		Identity         string `yaml:"identity"`
		FallbackLanguage string `yaml:"fallback_language"`
		DefaultLanguage  string `yaml:"default_language"`
	} `yaml:"bot"`
	Speech struct {
		Endpoint   string `yaml:"endpoint"`
		SampleRate int    `yaml:"sample_rate"`
	} `yaml:"speech"`
	Translation struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"translation"`
	Synthesis struct {
		Endpoint   string `yaml:"endpoint"`
		SampleRate int    `yaml:"sample_rate"`
	} `yaml:"synthesis"`
	Participants []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Language string `yaml:"language"`
	} `yaml:"participants"`
	Redis struct {
		Addr         string `yaml:"addr"`
		LanguagesKey string `yaml:"languages_key"`
	} `yaml:"redis"`
	Logs struct {
		OutputDir  string `yaml:"output_dir"`
		SaveEvents bool   `yaml:"save_events"`
	} `yaml:"logs"`
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file path")
	flag.Parse()

	// Load configuration
	config := &Config{}
	if err := loadConfig(configFile, config); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(config)

	if config.APIKey == "" {
		config.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if config.APIKey == "" {
		log.Fatal("No API key: set api_key in the config or GEMINI_API_KEY")
	}
	if _, err := uuid.Parse(config.Bot.Identity); err != nil {
		log.Fatalf("bot.identity must be the UUID the egress feed announces: %v", err)
	}

	sessionID := uuid.New().String()

	var events *eventlog.Logger
	if config.Logs.SaveEvents {
		var err error
		events, err = eventlog.New(config.Logs.OutputDir, sessionID, time.Now())
		if err != nil {
			log.Fatalf("Failed to create event log: %v", err)
		}
		defer events.Close()
	}

	var langs *langdir.Directory
	if config.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: config.Redis.Addr})
		langs = langdir.New(client, config.Redis.LanguagesKey)
	}

	dial := func(languageHint string) (transcriber.Stream, error) {
		return transcriber.NewLiveTranscriber(config.Speech.Endpoint, config.APIKey, languageHint, config.Speech.SampleRate)
	}

	player := synth.NewPlayer(config.Synthesis.SampleRate)
	orch := session.New(session.Config{
		SessionID:        sessionID,
		BotID:            config.Bot.Identity,
		FallbackLanguage: config.Bot.FallbackLanguage,
	}, dial, translate.New(config.Translation.Endpoint, config.APIKey), synth.New(config.Synthesis.Endpoint, config.APIKey), player, events)

	participants := make(map[string]bridge.ParticipantInfo, len(config.Participants))
	for _, p := range config.Participants {
		participants[p.ID] = bridge.ParticipantInfo{Name: p.Name, Language: p.Language}
	}

	b := bridge.New(bridge.Config{
		Host:            config.Server.Host,
		Port:            config.Server.Port,
		BotIdentity:     config.Bot.Identity,
		DefaultLanguage: config.Bot.DefaultLanguage,
		SampleRate:      config.Speech.SampleRate,
		Participants:    participants,
	}, orch, player, langs)

	orch.Start()

	// Start bridge in background
	go func() {
		if err := b.Start(); err != nil {
			log.Fatalf("Bridge error: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down bridge...")
	b.Stop()
	orch.Stop()
}

func applyDefaults(config *Config) {
	if config.Bot.FallbackLanguage == "" {
		config.Bot.FallbackLanguage = "English"
	}
	if config.Bot.DefaultLanguage == "" {
		config.Bot.DefaultLanguage = config.Bot.FallbackLanguage
	}
	if config.Speech.SampleRate == 0 {
		config.Speech.SampleRate = 16000
	}
	if config.Synthesis.SampleRate == 0 {
		config.Synthesis.SampleRate = 24000
	}
	if config.Redis.LanguagesKey == "" {
		config.Redis.LanguagesKey = "linguist:languages"
	}
}

func loadConfig(filename string, config *Config) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	return decoder.Decode(config)
}
