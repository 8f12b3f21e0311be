package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/passlock-labs/escrow-wallet.git/internal/api"
	"github.com/passlock-labs/escrow-wallet.git/internal/config"
	"github.com/passlock-labs/escrow-wallet.git/internal/creds"
	"github.com/passlock-labs/escrow-wallet.git/internal/daemon"
	"github.com/passlock-labs/escrow-wallet.git/internal/ipc"
	"github.com/passlock-labs/escrow-wallet.git/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "escrowd",
	Short: "Escrow Wallet Daemon",
	Long:  `A password-locked escrow transfer service with both interactive and CLI modes.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initOwnerCmd)
	rootCmd.AddCommand(recoverKeyCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(maintenanceCmd)
}

func initConfig() {
	err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	err = viper.ReadInConfig()
	if err != nil {
		log.Printf("Error reading viper config: %s", err.Error())
	}

	baseDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Error getting current directory: %v", err)
	}

	viper.Set("base_dir", baseDir)

	if err := logger.Init(viper.GetString("log_file")); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
}

func main() {
	initConfig()
	if len(os.Args) > 1 {
		// CLI mode
		if err := rootCmd.Execute(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	} else {
		// Interactive mode
		interactiveMode()
	}
}

func interactiveMode() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nEscrow Wallet Manager")
		fmt.Println("1. Start the escrow service")
		fmt.Println("2. Initialize owner credentials")
		fmt.Println("3. Trigger a sweep on a running service")
		fmt.Println("4. Show service status")
		fmt.Println("5. Exit")
		fmt.Print("\nEnter your choice (1, 2, 3, 4, or 5): ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		switch choice {
		case "1":
			if err := daemon.Run(); err != nil {
				log.Printf("Error running escrow service: %s", err)
			}
		case "2":
			fmt.Print("Enter the owner address: ")
			ownerAddress, _ := reader.ReadString('\n')
			if err := initOwner(strings.TrimSpace(ownerAddress)); err != nil {
				log.Printf("Error initializing owner: %s", err)
			}
		case "3":
			if err := sendIPCCommand("sweep"); err != nil {
				log.Printf("Error triggering sweep: %s", err)
			}
		case "4":
			if err := sendIPCCommand("status"); err != nil {
				log.Printf("Error fetching status: %s", err)
			}
		case "5":
			fmt.Println("Exiting program. Goodbye!")
			return
		default:
			fmt.Println("Invalid choice. Please try again.")
		}
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the escrow service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := daemon.Run(); err != nil {
			log.Fatalf("Error running escrow service: %v", err)
		}
	},
}

var initOwnerCmd = &cobra.Command{
	Use:   "init-owner [owner-address]",
	Short: "Generate owner credentials and register them in the config",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := initOwner(args[0]); err != nil {
			log.Fatalf("Error initializing owner: %v", err)
		}
	},
}

func initOwner(ownerAddress string) error {
	if ownerAddress == "" {
		return fmt.Errorf("owner address must not be empty")
	}

	password, err := creds.PromptPassword("Enter a password to encrypt the API key: ")
	if err != nil {
		return err
	}
	confirm, err := creds.PromptPassword("Confirm the password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	c, err := creds.GenerateOwnerCredentials(ownerAddress)
	if err != nil {
		return err
	}

	fmt.Println("\nYour recovery phrase is:")
	fmt.Println(c.Mnemonic)
	fmt.Println("Please write this down and keep it safe. It is the only way to recover the API key.")

	if err := creds.SaveOwnerCredentials(viper.GetString("service_name"), c, password); err != nil {
		return err
	}

	hash, err := api.HashAPIKey(c.APIKey)
	if err != nil {
		return fmt.Errorf("error hashing API key: %v", err)
	}

	viper.Set("owner_address", ownerAddress)
	viper.Set("api_key_hash", hash)
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config: %v", err)
	}

	creds.CopyAPIKeyToClipboard(c.APIKey)
	fmt.Println("\nOwner credentials initialized. The API key was copied to the clipboard.")
	return nil
}

var recoverKeyCmd = &cobra.Command{
	Use:   "recover-key [recovery-phrase]",
	Short: "Re-derive the owner API key from a recovery phrase",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		phrase := strings.Join(args, " ")
		if !creds.ValidMnemonic(phrase) {
			log.Fatal("Invalid recovery phrase")
		}

		apiKey := creds.DeriveAPIKey(phrase)
		creds.CopyAPIKeyToClipboard(apiKey)
		fmt.Println("API key recovered and copied to the clipboard.")
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Refund expired transfers on a running service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := sendIPCCommand("sweep"); err != nil {
			log.Fatalf("Error triggering sweep: %v", err)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := sendIPCCommand("status"); err != nil {
			log.Fatalf("Error fetching status: %v", err)
		}
	},
}

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Run one maintenance pass on a running service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := sendIPCCommand("maintenance"); err != nil {
			log.Fatalf("Error running maintenance: %v", err)
		}
	},
}

func sendIPCCommand(command string) error {
	client, err := ipc.NewClient()
	if err != nil {
		return fmt.Errorf("is the service running? %v", err)
	}
	defer client.Close()

	result, err := client.SendCommand(command, nil)
	if err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
