package services

import (
	"time"

	"github.com/rs/zerolog/log"

	"gridbound/server/messages"
	"gridbound/server/models"
)

// CombatService runs the attack/defend/run sub-protocol nested inside a
// turn. One combat at a time per session; the outer turn clock pauses
// while it runs and resumes (or advances) when it resolves.
type CombatService struct {
	cfg       models.GameConfig
	rng       Rand
	transport Transport
	stats     *StatsService

	actions  *ActionService
	turns    *TurnService
	sessions *SessionService
	movement *MovementService
}

// StartCombat pairs the initiator with an adjacent target. The initiator
// spends their one action for the turn. The outer turn clock pauses, the
// faster player opens the exchange, and the combat clock starts.
func (cs *CombatService) StartCombat(initiatorID, targetID string, session *GameSession) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Combat != nil {
		return
	}
	initiator := session.Room.PlayerByID(initiatorID)
	target := session.Room.PlayerByID(targetID)
	if initiator == nil || target == nil || initiator == target {
		return
	}
	if initiator.HasActed || !IsAdjacent(initiator.Position, target.Position) {
		return
	}

	initiator.HasActed = true
	cs.turns.pauseTurn(session)

	session.Combat = cs.generateCombat(initiator, target, session)
	cs.stats.CombatStarted(session.Room.Code, initiator.ID, target.ID)
	cs.stats.Log(session.Room.Code, initiator.Name+" started a fight with "+target.Name, initiator.ID, target.ID)
	log.Info().Str("room", session.Room.Code).Str("attacker", session.Combat.Attacker.Player.ID).
		Str("defender", session.Combat.Defender.Player.ID).Msg("combat started")

	cs.transport.ToRoom(session.Room.Code, messages.EventCombatStarted, messages.CombatMessage{
		AttackerID: session.Combat.Attacker.Player.ID,
		DefenderID: session.Combat.Defender.Player.ID,
	})
	cs.armCombatTimer(session)
	cs.announceCombatTurn(session)
}

// generateCombat builds the combat wrappers. The higher-speed player
// attacks first; equal speeds are broken by a uniform random draw. Each
// combatant's ice status is frozen here and applied as a roll penalty
// for the whole combat.
func (cs *CombatService) generateCombat(p1, p2 *models.Player, session *GameSession) *models.Combat {
	first, second := p1, p2
	if p2.Attributes.SpeedPoints > p1.Attributes.SpeedPoints ||
		(p2.Attributes.SpeedPoints == p1.Attributes.SpeedPoints && cs.rng.Intn(2) == 0) {
		first, second = p2, p1
	}
	return &models.Combat{
		Attacker: &models.Combatant{Player: first, OnIce: cs.onIce(session, first)},
		Defender: &models.Combatant{Player: second, OnIce: cs.onIce(session, second)},
	}
}

func (cs *CombatService) onIce(session *GameSession, player *models.Player) bool {
	tile := session.Room.Map.TileAt(player.Position)
	return tile != nil && tile.Type == models.TileIce
}

// attack rolls one exchange. Each player rolls their die for the role
// they play (larger die on the role they declared a preference for),
// adds base stats and item bonuses, minus the ice penalty where it
// applies. Debug mode replaces rolls with their maximum.
func (cs *CombatService) attack(combat *models.Combat, debugMode bool) models.AttackResult {
	attacker := combat.Attacker
	defender := combat.Defender

	attackRoll := cs.roll(attacker.Player.AttackDie(), debugMode)
	defenseRoll := cs.roll(defender.Player.DefenseDie(), debugMode)

	attackTotal := attackRoll + attacker.Player.Attributes.OffensePoints + itemAttackBonus(attacker.Player)
	defenseTotal := defenseRoll + defender.Player.Attributes.DefensePoints + itemDefenseBonus(defender.Player)
	if attacker.OnIce {
		attackTotal -= cs.cfg.IcePenalty
	}
	if defender.OnIce {
		defenseTotal -= cs.cfg.IcePenalty
	}

	return models.AttackResult{
		AttackRoll:   attackRoll,
		DefenseRoll:  defenseRoll,
		AttackTotal:  attackTotal,
		DefenseTotal: defenseTotal,
		Success:      attackTotal > defenseTotal,
	}
}

func (cs *CombatService) roll(die int, debugMode bool) int {
	if debugMode {
		return die
	}
	return cs.rng.Intn(die) + 1
}

func itemAttackBonus(p *models.Player) int {
	if p.HasItem(models.ItemSword) {
		return 2
	}
	return 0
}

func itemDefenseBonus(p *models.Player) int {
	if p.HasItem(models.ItemShield) {
		return 2
	}
	return 0
}

// startAttack resolves one exchange: on success the defender takes one
// point of damage, and at zero HP the attacker is declared victor.
// Requires the session lock.
func (cs *CombatService) startAttack(session *GameSession) {
	combat := session.Combat
	result := cs.attack(combat, session.DebugMode)
	combat.AttackResult = &result

	defender := combat.Defender.Player
	if result.Success {
		defender.Attributes.CurrentHP -= cs.cfg.AttackDamage
		if defender.Attributes.CurrentHP <= 0 {
			combat.Victor = combat.Attacker.Player
			combat.Loser = defender
			combat.Victor.Wins++
		}
	}
	cs.stats.Log(session.Room.Code, combat.Attacker.Player.Name+" attacked "+defender.Name,
		combat.Attacker.Player.ID, defender.ID)

	cs.transport.ToRoom(session.Room.Code, messages.EventAttackResult, messages.AttackResultMessage{
		AttackerID: combat.Attacker.Player.ID,
		DefenderID: defender.ID,
		Result:     result,
		DefenderHP: defender.Attributes.CurrentHP,
	})
}

// tryRun rolls the fixed escape chance; a failed attempt counts against
// the attacker's allowance. Requires the session lock.
func (cs *CombatService) tryRun(session *GameSession) {
	combat := session.Combat
	if cs.rng.Float64() < cs.cfg.EscapeChance {
		combat.Escaped = true
		cs.stats.CombatEscaped(session.Room.Code, combat.Attacker.Player.ID)
		cs.stats.Log(session.Room.Code, combat.Attacker.Player.Name+" fled the fight", combat.Attacker.Player.ID)
		return
	}
	combat.Attacker.RunAttempts++
	cs.transport.ToRoom(session.Room.Code, messages.EventRunFailed, messages.CombatMessage{
		AttackerID: combat.Attacker.Player.ID,
		DefenderID: combat.Defender.Player.ID,
	})
}

// maxRunAttempts is lower when the opposing combatant carries a trap
func (cs *CombatService) maxRunAttempts(combat *models.Combat) int {
	if combat.Defender.Player.HasItem(models.ItemTrap) {
		return cs.cfg.RunAttemptsTrapped
	}
	return cs.cfg.RunAttempts
}

// CombatMove executes the acting combatant's choice. Rejected silently
// when no combat is active, a move is already resolving, or a run is
// requested with no attempts left. Unless the combat resolves, the
// roles swap and the combat clock re-arms.
func (cs *CombatService) CombatMove(session *GameSession, move models.CombatMove) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	cs.combatMove(session, move)
}

// CombatMoveBy executes a move on behalf of a specific player, rejected
// silently when that player is not the acting combatant.
func (cs *CombatService) CombatMoveBy(session *GameSession, playerID string, move models.CombatMove) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.Combat == nil || session.Combat.Attacker.Player.ID != playerID {
		return
	}
	cs.combatMove(session, move)
}

// combatMove requires the session lock
func (cs *CombatService) combatMove(session *GameSession, move models.CombatMove) {
	combat := session.Combat
	if combat == nil || combat.Locked {
		return
	}
	if move == models.MoveRun && combat.Attacker.RunAttempts >= cs.maxRunAttempts(combat) {
		return
	}
	combat.Locked = true

	switch move {
	case models.MoveRun:
		cs.tryRun(session)
	default:
		cs.startAttack(session)
	}

	if combat.Victor != nil || combat.Escaped {
		cs.handleCombatEnd(session)
		return
	}

	combat.Attacker, combat.Defender = combat.Defender, combat.Attacker
	combat.AttackResult = nil
	combat.Locked = false
	cs.armCombatTimer(session)
	cs.announceCombatTurn(session)
}

// armCombatTimer replaces the combat clock, shortening it once the
// acting combatant has no escapes left.
func (cs *CombatService) armCombatTimer(session *GameSession) {
	if session.CombatTimer != nil {
		session.CombatTimer.Stop()
	}
	seconds := cs.cfg.CombatTurnSeconds
	if session.Combat.Attacker.RunAttempts >= cs.maxRunAttempts(session.Combat) {
		seconds = cs.cfg.CombatTurnShortSeconds
	}
	timer := NewGameTimer(seconds, time.Second, false, 0)
	session.CombatTimer = timer
	timer.Start(
		func(count int) {
			cs.transport.ToRoom(session.Room.Code, messages.EventClockTick, messages.ClockMessage{Seconds: count})
		},
		func() {
			// an expired combat clock plays the default move
			cs.CombatMove(session, models.MoveAttack)
		},
	)
}

// announceCombatTurn tells the room whose move it is and, for a virtual
// actor, schedules its decision. Requires the session lock.
func (cs *CombatService) announceCombatTurn(session *GameSession) {
	combat := session.Combat
	cs.transport.ToRoom(session.Room.Code, messages.EventCombatTurn, messages.CombatMessage{
		AttackerID: combat.Attacker.Player.ID,
		DefenderID: combat.Defender.Player.ID,
	})
	if combat.Attacker.Player.IsVirtual {
		go cs.playVirtualCombatMove(session, combat.Attacker.Player)
	}
}

// playVirtualCombatMove picks the move for a virtual combatant after a
// randomized thinking delay. Aggressive players always attack; defensive
// ones run while injured and attack otherwise.
func (cs *CombatService) playVirtualCombatMove(session *GameSession, player *models.Player) {
	time.Sleep(cs.thinkingDelay())

	session.mu.Lock()
	combat := session.Combat
	if combat == nil || combat.Attacker.Player != player || combat.Locked {
		session.mu.Unlock()
		return
	}
	move := models.MoveAttack
	if !player.IsAggressive &&
		player.Attributes.CurrentHP < player.Attributes.LifePoints &&
		combat.Attacker.RunAttempts < cs.maxRunAttempts(combat) {
		move = models.MoveRun
	}
	cs.combatMove(session, move)
	session.mu.Unlock()
}

func (cs *CombatService) thinkingDelay() time.Duration {
	spread := cs.cfg.ThinkingDelayMax - cs.cfg.ThinkingDelayMin
	if spread <= 0 {
		return cs.cfg.ThinkingDelayMin
	}
	return cs.cfg.ThinkingDelayMin + time.Duration(cs.rng.Intn(int(spread)))
}

// handleCombatEnd tears the combat down: scatter and strip the loser's
// inventory, respawn the loser, restore both combatants' HP, then after
// a short delay continue or advance the outer turn. A victor reaching
// the win threshold stops the whole game instead. Requires the session lock.
func (cs *CombatService) handleCombatEnd(session *GameSession) {
	combat := session.Combat
	if session.CombatTimer != nil {
		session.CombatTimer.Stop()
	}

	var resume *models.Player
	if combat.Victor != nil {
		resume = combat.Victor
		cs.stats.CombatWon(session.Room.Code, combat.Victor.ID)
		cs.stats.CombatLost(session.Room.Code, combat.Loser.ID)
		cs.stats.Log(session.Room.Code, combat.Victor.Name+" won the fight against "+combat.Loser.Name,
			combat.Victor.ID, combat.Loser.ID)
		cs.scatterInventory(session, combat.Loser)
		cs.respawnPlayer(session, combat.Loser)
	} else {
		resume = combat.Attacker.Player
	}

	cs.restoreHP(combat.Attacker.Player)
	cs.restoreHP(combat.Defender.Player)

	cs.transport.ToRoom(session.Room.Code, messages.EventCombatResult, cs.resultMessage(combat))
	cs.transport.ToRoom(session.Room.Code, messages.EventCombatEnded, cs.resultMessage(combat))
	cs.transport.ToRoom(session.Room.Code, messages.EventMapUpdated, messages.MapMessage{Map: session.Room.Map})
	session.Combat = nil

	if combat.Victor != nil && combat.Victor.Wins >= cs.cfg.WinThreshold {
		cs.turns.stopGame(session, combat.Victor)
		return
	}

	time.AfterFunc(cs.cfg.CombatEndDelay, func() {
		cs.resumeTurnAfterCombat(session, resume)
	})
}

// handleCombatQuit awards the combat to the combatant who stayed when
// the other disconnects mid-fight. Requires the session lock; called
// from the player-exit path.
func (cs *CombatService) handleCombatQuit(session *GameSession, quitter *models.Player) {
	combat := session.Combat
	if combat == nil || combat.CombatantFor(quitter) == nil {
		return
	}
	remaining := combat.Opponent(quitter)
	combat.Victor = remaining.Player
	combat.Loser = quitter
	combat.Victor.Wins++
	if session.CombatTimer != nil {
		session.CombatTimer.Stop()
	}

	cs.stats.CombatWon(session.Room.Code, combat.Victor.ID)
	cs.stats.Log(session.Room.Code, quitter.Name+" abandoned the fight", quitter.ID, combat.Victor.ID)
	cs.restoreHP(combat.Victor)

	cs.transport.ToRoom(session.Room.Code, messages.EventCombatAborted, cs.resultMessage(combat))
	session.Combat = nil

	if combat.Victor.Wins >= cs.cfg.WinThreshold {
		cs.turns.stopGame(session, combat.Victor)
		return
	}
	victor := combat.Victor
	time.AfterFunc(cs.cfg.CombatEndDelay, func() {
		cs.resumeTurnAfterCombat(session, victor)
	})
}

func (cs *CombatService) resultMessage(combat *models.Combat) messages.CombatResultMessage {
	msg := messages.CombatResultMessage{Escaped: combat.Escaped}
	if combat.Victor != nil {
		msg.VictorID = combat.Victor.ID
		msg.LoserID = combat.Loser.ID
	}
	return msg
}

func (cs *CombatService) restoreHP(player *models.Player) {
	player.Attributes.CurrentHP = player.Attributes.LifePoints
}

// scatterInventory drops the loser's items onto the nearest free tiles,
// reversing their stat effects. Requires the session lock.
func (cs *CombatService) scatterInventory(session *GameSession, loser *models.Player) {
	positions := NearestPositions(loser, session.Room.Map)
	for i, item := range loser.Inventory {
		cs.actions.applyItemEffect(session, loser, item.Type, false)
		if item.Type == models.ItemFlag {
			loser.HasFlag = false
			cs.transport.ToRoom(session.Room.Code, messages.EventFlagDropped, messages.FlagMessage{
				PlayerID:   loser.ID,
				PlayerName: loser.Name,
			})
		}
		if i < len(positions) {
			dropped := item
			dropped.Position = positions[i]
			session.Room.Map.TileAt(positions[i]).Item = &dropped
		}
	}
	loser.Inventory = nil
	cs.actions.emitAttributes(session, loser)
}

// respawnPlayer returns a defeated player towards their start tile,
// searching outward ring by ring for the nearest free valid tile.
// Requires the session lock.
func (cs *CombatService) respawnPlayer(session *GameSession, player *models.Player) {
	if player.Position == player.StartPosition {
		return
	}
	m := session.Room.Map
	start := player.StartPosition
	maxRadius := len(m.Grid)
	for radius := 0; radius <= maxRadius; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if max(abs(dx), abs(dy)) != radius {
					continue
				}
				pos := models.Position{X: start.X + dx, Y: start.Y + dy}
				if IsValidTile(m, pos.X, pos.Y) {
					cs.movement.relocate(session, player, pos)
					cs.transport.ToRoom(session.Room.Code, messages.EventPlayerMoved, messages.MoveMessage{
						PlayerID: player.ID,
						Position: pos,
					})
					return
				}
			}
		}
	}
}

// resumeTurnAfterCombat continues the paused turn when the surviving
// combatant still holds it and can still do something, and advances it
// otherwise. Combat teardown always wins over the outer clock: the
// timer was paused when combat began, so it cannot have expired underneath.
func (cs *CombatService) resumeTurnAfterCombat(session *GameSession, player *models.Player) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if !session.Room.IsActive {
		return
	}
	current := session.CurrentPlayer()
	if current != player {
		cs.turns.endTurn(session)
		return
	}
	if player.Attributes.CurrentSpeed > 0 ||
		(!player.HasActed && cs.actions.PlayerHasNearbyAction(session, player)) {
		cs.turns.continueTurn(session)
		return
	}
	cs.turns.endTurn(session)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
