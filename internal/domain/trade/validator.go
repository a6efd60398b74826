package trade

// Validate decides whether an incoming event may mutate the stored record.
// existing is nil when no record exists for the event's trade id; today is
// the evaluation date for the maturity rule.
//
// Rules apply in order and the first failure wins:
//  1. an event with a version lower than the stored one is rejected
//     (an equal version is accepted and replaces the record);
//  2. an event whose maturity date is before today is rejected.
//
// The ordering is contractual: an event failing both rules reports the
// version failure. No other field carries business meaning here.
func Validate(event *Event, existing *Trade, today Date) error {
	if existing != nil && event.Version < existing.Version {
		return ErrLowerVersion{
			TradeID:         event.TradeID,
			ReceivedVersion: event.Version,
			CurrentVersion:  existing.Version,
		}
	}

	if event.MaturityDate.Before(today) {
		return ErrMaturityInPast{
			TradeID:      event.TradeID,
			MaturityDate: event.MaturityDate,
		}
	}

	return nil
}
