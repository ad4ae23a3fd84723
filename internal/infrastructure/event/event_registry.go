package event

import (
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/substance"
)

// RegisterAllEvents registers every domain event type with the serializer so
// the outbox processor can decode stored payloads
func RegisterAllEvents(serializer *EventSerializer) {
	// Identity
	serializer.Register(identity.EventTypeAccountRegistered, &identity.AccountRegisteredEvent{})
	serializer.Register(identity.EventTypeAccountEmailVerified, &identity.AccountEmailVerifiedEvent{})
	serializer.Register(identity.EventTypeAccountEmailChanged, &identity.AccountEmailChangedEvent{})
	serializer.Register(identity.EventTypeAccountPasswordChanged, &identity.AccountPasswordChangedEvent{})
	serializer.Register(identity.EventTypeAccountRolesChanged, &identity.AccountRolesChangedEvent{})
	serializer.Register(identity.EventTypeAccountDeleted, &identity.AccountDeletedEvent{})
	serializer.Register(identity.EventTypeRoleCreated, &identity.RoleCreatedEvent{})
	serializer.Register(identity.EventTypeRoleUpdated, &identity.RoleUpdatedEvent{})
	serializer.Register(identity.EventTypeRoleDeleted, &identity.RoleDeletedEvent{})
	serializer.Register(identity.EventTypeRolePermissionsChanged, &identity.RolePermissionsChangedEvent{})

	// Substance catalogue
	serializer.Register(substance.EventTypeSubstanceCreated, &substance.SubstanceEvent{})
	serializer.Register(substance.EventTypeSubstanceUpdated, &substance.SubstanceEvent{})
	serializer.Register(substance.EventTypeSubstanceDeleted, &substance.SubstanceEvent{})

	// Journal
	serializer.Register(journal.EventTypeIngestionLogged, &journal.IngestionEvent{})
	serializer.Register(journal.EventTypeIngestionUpdated, &journal.IngestionEvent{})
	serializer.Register(journal.EventTypeIngestionDeleted, &journal.IngestionEvent{})
	serializer.Register(journal.EventTypeStashCreated, &journal.StashEvent{})
	serializer.Register(journal.EventTypeStashWithdrawn, &journal.StashEvent{})
	serializer.Register(journal.EventTypeStashDeposited, &journal.StashEvent{})
	serializer.Register(journal.EventTypeStashExpired, &journal.StashEvent{})
	serializer.Register(journal.EventTypeStashDeleted, &journal.StashEvent{})
}
