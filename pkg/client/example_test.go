package client_test

import (
	"context"
	"fmt"
	"log"

	"github.com/pratik-mahalle/jobtrail/pkg/client"
)

// Example demonstrates reading the caller's entitlement
func Example() {
	c := client.NewClient(client.Config{
		BaseURL: "https://api.jobtrail.app",
		Token:   "eyJhbGciOi...",
	})

	ent, err := c.Billing().Entitlement(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Plan: %s (premium: %v)\n", ent.Plan, ent.HasPremium)
}

// ExampleBillingService_StartOneTime demonstrates a pay-what-you-want purchase
func ExampleBillingService_StartOneTime() {
	c := client.NewClient(client.Config{
		BaseURL: "https://api.jobtrail.app",
		Token:   "eyJhbGciOi...",
	})

	intent, err := c.Billing().StartOneTime(context.Background(), 500)
	if err != nil {
		if apiErr, ok := client.AsAPIError(err); ok && apiErr.IsPaymentsDisabled() {
			fmt.Println("Payments are turned off")
			return
		}
		log.Fatal(err)
	}

	if intent.Granted {
		fmt.Println("Granted without payment")
		return
	}
	fmt.Println("Confirm the payment with the client secret")
}
