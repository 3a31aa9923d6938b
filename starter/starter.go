package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"marketplace-checkout/codec"
	"marketplace-checkout/models"
	"marketplace-checkout/workflows"
)

const (
	TaskQueueName = "checkout-session-queue"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "User ID to start a checkout session for")
	productID := flag.Int64("product-id", 0, "Single-product checkout context (optional)")
	quantity := flag.Int("quantity", 1, "Quantity for single-product checkout")
	signalName := flag.String("signal", "", "Send signal to session (submit-shipping, submit-payment, retry, complete-challenge, cancel)")
	data := flag.String("data", "", "JSON payload for submit-shipping / submit-payment signals")
	query := flag.Bool("query", false, "Query session state")
	workflowID := flag.String("workflow-id", "", "Checkout session ID for signal/query operations")
	flag.Parse()

	temporalAddress := os.Getenv("TEMPORAL_ADDRESS")
	if temporalAddress == "" {
		temporalAddress = "localhost:7233"
	}

	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	var keyBytes []byte
	var err error

	if encryptionKey != "" {
		keyBytes, err = hex.DecodeString(encryptionKey)
		if err != nil {
			log.Fatalf("Failed to decode encryption key: %v", err)
		}
	} else {
		keyBytes = make([]byte, 32)
		if _, err := rand.Read(keyBytes); err != nil {
			log.Fatalf("Failed to generate encryption key: %v", err)
		}
		log.Printf("Warning: Using generated encryption key. Set ENCRYPTION_KEY env var to match worker.")
	}

	dataConverter, err := codec.NewEncryptionDataConverter(keyBytes)
	if err != nil {
		log.Fatalf("Failed to create encryption data converter: %v", err)
	}

	c, err := client.Dial(client.Options{
		HostPort:      temporalAddress,
		DataConverter: dataConverter,
	})
	if err != nil {
		log.Fatalf("Unable to create Temporal client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()

	switch {
	case *signalName != "":
		if *workflowID == "" {
			log.Fatal("-workflow-id is required for signal operations")
		}
		sendSignal(ctx, c, *workflowID, *signalName, *data)

	case *query:
		if *workflowID == "" {
			log.Fatal("-workflow-id is required for query operations")
		}
		queryState(ctx, c, *workflowID)

	default:
		if *userID == "" {
			log.Fatal("-user is required to start a checkout session")
		}
		startCheckout(ctx, c, *userID, *productID, int32(*quantity))
	}
}

func startCheckout(ctx context.Context, c client.Client, userID string, productID int64, quantity int32) {
	checkoutID := "checkout-" + uuid.NewString()

	options := client.StartWorkflowOptions{
		ID:                    checkoutID,
		TaskQueue:             TaskQueueName,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	input := models.CheckoutInput{
		CheckoutID: checkoutID,
		UserID:     userID,
		ProductID:  productID,
		Quantity:   quantity,
	}

	we, err := c.ExecuteWorkflow(ctx, options, workflows.CheckoutWorkflow, input)
	if err != nil {
		log.Fatalf("Unable to start checkout session: %v", err)
	}

	log.Printf("Started checkout session")
	log.Printf("  Checkout ID: %s", checkoutID)
	log.Printf("  Run ID: %s", we.GetRunID())
	log.Printf("Drive it with -signal/-query -workflow-id %s", checkoutID)
}

func sendSignal(ctx context.Context, c client.Client, workflowID, signalName, data string) {
	var payload interface{}

	switch signalName {
	case workflows.SignalSubmitShipping:
		var shipping models.ShippingInfo
		if err := json.Unmarshal([]byte(data), &shipping); err != nil {
			log.Fatalf("-data must be ShippingInfo JSON for %s: %v", signalName, err)
		}
		payload = shipping
	case workflows.SignalSubmitPayment:
		var card models.CardInput
		if err := json.Unmarshal([]byte(data), &card); err != nil {
			log.Fatalf("-data must be CardInput JSON for %s: %v", signalName, err)
		}
		payload = card
	case workflows.SignalRetry, workflows.SignalCompleteChallenge, workflows.SignalCancel:
		payload = nil
	default:
		log.Fatalf("Unknown signal: %s", signalName)
	}

	if err := c.SignalWorkflow(ctx, workflowID, "", signalName, payload); err != nil {
		log.Fatalf("Failed to send signal: %v", err)
	}
	log.Printf("Signal %q sent to %s", signalName, workflowID)
}

func queryState(ctx context.Context, c client.Client, workflowID string) {
	value, err := c.QueryWorkflow(ctx, workflowID, "", workflows.QueryState)
	if err != nil {
		log.Fatalf("Failed to query session: %v", err)
	}

	var snapshot models.CheckoutSnapshot
	if err := value.Get(&snapshot); err != nil {
		log.Fatalf("Failed to decode session state: %v", err)
	}

	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render session state: %v", err)
	}
	fmt.Println(string(out))

	switch {
	case snapshot.State.IsTerminal():
		log.Printf("Session %s is finished; it accepts no further signals", workflowID)
	case snapshot.State.IsBusy():
		log.Printf("Session %s has a collaborator call in flight; submits are ignored until it returns", workflowID)
	}
}
