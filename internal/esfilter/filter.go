package esfilter

import "github.com/hdhrcore/tvcore/internal/stream"

// Apply runs the ElementaryStreamFilter over svc.Components and sets
// svc.Filtered, per spec.md §4.1. Must be called with svc's stream lock
// already held (Service.Start/Restart do this via FilterFunc). logf, if
// non-nil, receives a DEBUG line for any rule with an unrecognized Action
// (spec.md §7: "Unknown filter-rule actions are logged at DEBUG and
// ignored").
func Apply(svc *stream.Service, rules *Set, logf func(format string, args ...any)) {
	if !rules.hasAnyActiveRule() {
		svc.Filtered = append(svc.Filtered[:0], svc.Components...)
		for _, es := range svc.Components {
			for _, c := range es.CAIDs {
				c.Use = true
			}
		}
		return
	}

	for _, es := range svc.Components {
		es.ClearFilterState()
	}
	svc.Filtered = svc.Filtered[:0]

	for _, class := range classOrder {
		applyClass(svc, rules, class, logf)
	}
}

func applyClass(svc *stream.Service, rules *Set, class Class, logf func(string, ...any)) {
	o := len(svc.Filtered)
	classRules := rules.rulesFor(class)
	admitted := make(map[*stream.ElementaryStream]bool, len(svc.Components))
	exclusive := false

	admit := func(es *stream.ElementaryStream) {
		if admitted[es] {
			return
		}
		admitted[es] = true
		svc.Filtered = append(svc.Filtered, es)
	}

	if len(classRules) == 0 {
		for _, es := range svc.Components {
			if !classMask(class, es.Type) {
				continue
			}
			admit(es)
			for _, c := range es.CAIDs {
				c.Use = true
			}
		}
	} else {
	ruleLoop:
		for _, rule := range classRules {
			if !rule.Enabled {
				continue
			}
			sindex := 0
			for _, es := range svc.Components {
				if !classMask(class, es.Type) {
					continue
				}
				if !ruleMatches(svc, rule, es, class) {
					continue
				}
				sindex++
				if rule.SIndex != 0 && rule.SIndex != sindex {
					continue
				}

				switch rule.Action {
				case ActionNone:
					// no effect

				case ActionIgnore:
					es.Filter = stream.CAIDFilterIgnore
					markCAIDs(es, rule, class, stream.CAIDFilterIgnore)

				case ActionOnce:
					if onceShouldDowngrade(class, es, admitted) {
						es.Filter = stream.CAIDFilterIgnore
					} else {
						admit(es)
						markCAIDs(es, rule, class, stream.CAIDFilterUsed)
					}

				case ActionUse:
					admit(es)
					markCAIDs(es, rule, class, stream.CAIDFilterUsed)

				case ActionExclusive:
					removed := append([]*stream.ElementaryStream(nil), svc.Filtered[o:]...)
					svc.Filtered = svc.Filtered[:o]
					for _, r := range removed {
						delete(admitted, r)
						for _, c := range r.CAIDs {
							c.Use = false
						}
					}
					admit(es)
					markCAIDs(es, rule, class, stream.CAIDFilterUsed)
					for _, c := range es.CAIDs {
						if c.Filter == stream.CAIDFilterUsed {
							c.Use = true
						}
					}
					exclusive = true
					break ruleLoop

				case ActionEmpty:
					if len(svc.Filtered) == o {
						admit(es)
						markCAIDs(es, rule, class, stream.CAIDFilterUsed)
					}

				default:
					if logf != nil {
						logf("esfilter: unknown rule action %d on class %d, ignoring", rule.Action, class)
					}
				}
			}
		}
	}

	if exclusive {
		return
	}

	for _, es := range svc.Components {
		if !classMask(class, es.Type) {
			continue
		}
		if admitted[es] || es.Filter == stream.CAIDFilterIgnore {
			continue
		}
		admit(es)
		for _, c := range es.CAIDs {
			c.Use = true
		}
	}
	for es := range admitted {
		for _, c := range es.CAIDs {
			if c.Filter == stream.CAIDFilterUsed {
				c.Use = true
			}
		}
	}
}

// ruleMatches reports whether es is a candidate for rule within class:
// optional explicit type, 4-byte language prefix, service scope (and PID
// narrowing within it), and for CA rules, optional CAID/provider-id. A CA
// rule that narrows by CAID but finds no matching CAID on es falls
// through (spec.md §4.1 edge cases).
func ruleMatches(svc *stream.Service, rule *Rule, es *stream.ElementaryStream, class Class) bool {
	if rule.Type != nil && *rule.Type != es.Type {
		return false
	}
	if rule.Language != "" && !languagePrefixMatch(rule.Language, es.Language) {
		return false
	}
	if rule.ServiceUUID != "" {
		if rule.ServiceUUID != svc.ID {
			return false
		}
		if rule.PID != nil && *rule.PID != es.PID {
			return false
		}
	}
	if class == ClassCA && rule.CAID != nil {
		if len(matchedCAIDs(es, rule)) == 0 {
			return false
		}
	}
	return true
}

// languagePrefixMatch compares the first 4 bytes of a and b, treating a
// short ISO-639-2 code as null-terminated (spec.md §8 boundary: "language
// comparison uses the first 4 bytes (including terminator)"). For codes of
// 3 bytes or fewer (the only valid case), this is exact string equality.
func languagePrefixMatch(a, b string) bool {
	var ba, bb [4]byte
	copy(ba[:], a)
	copy(bb[:], b)
	return ba == bb
}

// matchedCAIDs returns the CAID entries on es that rule narrows to, or all
// of es's CAIDs if the rule does not specify a CAID (spec.md §4.1: "mark
// the matched CAID (or all)").
func matchedCAIDs(es *stream.ElementaryStream, rule *Rule) []*stream.CAID {
	if rule.CAID == nil {
		return es.CAIDs
	}
	var out []*stream.CAID
	for _, c := range es.CAIDs {
		if c.CAID == *rule.CAID && (rule.ProviderID == nil || c.ProviderID == *rule.ProviderID) {
			out = append(out, c)
		}
	}
	return out
}

func markCAIDs(es *stream.ElementaryStream, rule *Rule, class Class, flag stream.CAIDFilterFlag) {
	if class != ClassCA {
		return
	}
	for _, c := range matchedCAIDs(es, rule) {
		c.Filter = flag
	}
}

// onceShouldDowngrade implements the ONCE action's downgrade rule: for CA,
// any prior admission in this class triggers the downgrade; for other
// classes, a prior admission with the same language does.
func onceShouldDowngrade(class Class, es *stream.ElementaryStream, admitted map[*stream.ElementaryStream]bool) bool {
	if class == ClassCA {
		return len(admitted) > 0
	}
	for other := range admitted {
		if other.Language == es.Language {
			return true
		}
	}
	return false
}
