// The seeder loads the schema plus a demo tenant for local development:
// one gateway, two groups with escalation enabled, routing rules, a couple
// of users, and a draft campaign.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	dsn := os.Getenv("DATABASE_URL")
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	schema, err := os.ReadFile("migrations/001_init.sql")
	if err != nil {
		log.Fatalf("failed to read schema: %v", err)
	}
	if _, err := conn.Exec(string(schema)); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	fmt.Println("schema applied")

	if _, err := conn.Exec(demoData); err != nil {
		log.Fatalf("failed to seed demo data: %v", err)
	}
	fmt.Println("demo data seeded")
}

const demoData = `
INSERT INTO tenants (id, name) VALUES (1, 'Demo Energi AS');

INSERT INTO users (id, tenant_id, email, name, role) VALUES
    (1, 1, 'vakt@demo.no', 'Vakthavende', 'member'),
    (2, 1, 'drift@demo.no', 'Driftsleder', 'admin');

INSERT INTO groups (id, tenant_id, name, escalation_enabled, escalation_timeout_minutes) VALUES
    (1, 1, 'Support', true, 30),
    (2, 1, 'Generelt', true, 60);

INSERT INTO group_members (group_id, user_id) VALUES (1, 1), (1, 2), (2, 1);

INSERT INTO gateways (id, tenant_id, name, sender_id, fallback_group_id) VALUES
    (1, 1, 'Primary', '+4759440000', 2);

INSERT INTO routing_rules (tenant_id, gateway_id, kind, pattern, target_group_id, priority) VALUES
    (1, NULL, 'keyword', 'hjelp', 1, 1),
    (1, NULL, 'prefix', 'feil', 1, 2),
    (1, NULL, 'fallback', '', 2, 100);

INSERT INTO bulk_campaigns (id, tenant_id, group_id, gateway_id, name, template, status) VALUES
    (1, 1, 1, 1, 'Planned outage notice',
     'Hei {{name}}! Stroemmen blir borte i {{area}} i morgen kl 09-11. Svar HJELP ved behov.',
     'draft');

INSERT INTO bulk_recipients (campaign_id, phone, metadata) VALUES
    (1, '+4798000001', '{"name": "Kari", "area": "Egersund"}'),
    (1, '+4798000002', '{"name": "Ola", "area": "Hellvik"}');

SELECT setval('tenants_id_seq', 10);
SELECT setval('users_id_seq', 10);
SELECT setval('groups_id_seq', 10);
SELECT setval('gateways_id_seq', 10);
SELECT setval('bulk_campaigns_id_seq', 10);
`
